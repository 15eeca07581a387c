package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/errors"
	"github.com/iov-one/quorum/quorumtest"
	"github.com/iov-one/quorum/quorumtest/assert"
	"github.com/iov-one/quorum/store"
)

func TestGenesis(t *testing.T) {
	a, b := quorumtest.NewCondition().Address(), quorumtest.NewCondition().Address()

	cases := map[string]struct {
		genesis     string
		wantErr     *errors.Error
		wantMembers []quorum.Address
	}{
		"no wallet key": {
			genesis: `{}`,
		},
		"valid": {
			genesis:     fmt.Sprintf(`{"wallet": {"members": [%q, %q], "threshold": 2}}`, a, b),
			wantMembers: []quorum.Address{a, b},
		},
		"threshold too high": {
			genesis: fmt.Sprintf(`{"wallet": {"members": [%q], "threshold": 2}}`, a),
			wantErr: ErrInvalidThreshold,
		},
		"malformed address": {
			genesis: `{"wallet": {"members": ["qrm1xyz"], "threshold": 1}}`,
			wantErr: errors.ErrInput,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var opts quorum.Options
			assert.Nil(t, json.Unmarshal([]byte(tc.genesis), &opts))

			db := store.MemStore()
			var ini Initializer
			err := ini.FromGenesis(context.Background(), opts, db)
			if !tc.wantErr.Is(err) {
				t.Fatalf("want %v error, got %+v", tc.wantErr, err)
			}
			if tc.wantMembers == nil {
				return
			}
			members, err := NewMembershipStore().List(db)
			assert.Nil(t, err)
			assert.Equal(t, tc.wantMembers, members)
		})
	}
}

func TestGenesisTwice(t *testing.T) {
	a := quorumtest.NewCondition().Address()
	opts := quorum.Options{
		"wallet": json.RawMessage(fmt.Sprintf(`{"members": [%q], "threshold": 1}`, a)),
	}
	db := store.MemStore()
	var ini Initializer
	assert.Nil(t, ini.FromGenesis(context.Background(), opts, db))
	err := ini.FromGenesis(context.Background(), opts, db)
	assert.IsErr(t, ErrAlreadyInitialized, err)
}
