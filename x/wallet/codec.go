package wallet

import (
	"github.com/iov-one/quorum"
	amino "github.com/tendermint/go-amino"
)

// ModuleCdc encodes all stored models and messages of this package.
// Actions are encoded as a tagged variant named after their type.
var ModuleCdc = amino.NewCodec()

func init() {
	RegisterCodec(ModuleCdc)
	ModuleCdc.Seal()
}

// RegisterCodec registers the Action variants and the messages of this
// package on cdc.
func RegisterCodec(cdc *amino.Codec) {
	cdc.RegisterInterface((*Action)(nil), nil)
	cdc.RegisterConcrete(TransferAction{}, "wallet/Transfer", nil)
	cdc.RegisterConcrete(FunctionCallAction{}, "wallet/FunctionCall", nil)
	cdc.RegisterConcrete(AddMemberAction{}, "wallet/AddMember", nil)
	cdc.RegisterConcrete(RemoveMemberAction{}, "wallet/RemoveMember", nil)
	cdc.RegisterConcrete(ChangeThresholdAction{}, "wallet/ChangeThreshold", nil)

	cdc.RegisterInterface((*quorum.Msg)(nil), nil)
	cdc.RegisterConcrete(&ProposeMsg{}, "wallet/ProposeMsg", nil)
	cdc.RegisterConcrete(&ConfirmMsg{}, "wallet/ConfirmMsg", nil)
	cdc.RegisterConcrete(&RevokeMsg{}, "wallet/RevokeMsg", nil)
	cdc.RegisterConcrete(&DeleteMsg{}, "wallet/DeleteMsg", nil)
}
