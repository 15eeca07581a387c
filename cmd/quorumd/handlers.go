package main

import (
	"encoding/hex"
	"encoding/json"
	"io"
	"io/ioutil"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/factory"
	"github.com/iov-one/quorum/x/sigs"
	"github.com/iov-one/quorum/x/utils"
	"github.com/iov-one/quorum/x/wallet"
	"github.com/tendermint/tendermint/libs/log"
)

// maxBodySize limits the size of accepted request bodies.
const maxBodySize = 1e6

func newRouter(db quorum.CacheableKVStore, f *factory.Factory, logger log.Logger, debug bool) http.Handler {
	rt := http.NewServeMux()
	rt.Handle("GET /info", &InfoHandler{Factory: f})
	rt.Handle("/wallets", &WalletsHandler{Factory: f, Debug: debug})
	rt.Handle("GET /wallets/{name}", &WalletInfoHandler{Factory: f, Debug: debug})
	rt.Handle("GET /wallets/{name}/members", &MembersHandler{Factory: f, Debug: debug})
	rt.Handle("GET /wallets/{name}/requests", &RequestsHandler{Factory: f, Debug: debug})
	rt.Handle("GET /wallets/{name}/requests/{id}", &RequestHandler{Factory: f, Debug: debug})
	rt.Handle("POST /wallets/{name}/tx", &TxHandler{Factory: f, DB: db, Debug: debug})
	rt.Handle("GET /signers/{address}", &SignerHandler{DB: db, Debug: debug})
	rt.Handle("/", &DefaultHandler{})
	return withLogging(logger, rt)
}

// withLogging puts logger in the context of every request and logs the
// outcome of each of them.
func withLogging(logger log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		r = r.WithContext(quorum.WithLogger(r.Context(), logger))
		next.ServeHTTP(rec, r)
		logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.code,
			"duration", time.Since(start)/time.Microsecond)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

// InfoHandler describes the service.
type InfoHandler struct {
	Factory *factory.Factory
}

func (h *InfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	count, err := h.Factory.Count()
	if err != nil {
		JSONError(w, err, false)
		return
	}
	JSONResp(w, http.StatusOK, struct {
		Version string `json:"version"`
		Wallets uint64 `json:"wallets"`
	}{
		Version: quorum.Version(),
		Wallets: count,
	})
}

// WalletsHandler lists wallets on GET and creates one on POST. Anyone
// may create a wallet.
type WalletsHandler struct {
	Factory *factory.Factory
	Debug   bool
}

type createWalletRequest struct {
	Name      string           `json:"name"`
	Members   []quorum.Address `json:"members"`
	Threshold uint32           `json:"threshold"`
}

func (h *WalletsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		records, err := h.Factory.Records()
		if err != nil {
			JSONError(w, err, h.Debug)
			return
		}
		if records == nil {
			records = []*factory.Record{}
		}
		JSONResp(w, http.StatusOK, struct {
			Objects []*factory.Record `json:"objects"`
		}{
			Objects: records,
		})
	case "POST":
		var req createWalletRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
			JSONErr(w, http.StatusBadRequest, "Invalid request body.")
			return
		}
		if _, err := h.Factory.Create(r.Context(), req.Name, req.Members, req.Threshold); err != nil {
			JSONError(w, err, h.Debug)
			return
		}
		rec, err := h.Factory.Record(req.Name)
		if err != nil {
			JSONError(w, err, h.Debug)
			return
		}
		JSONResp(w, http.StatusCreated, rec)
	default:
		JSONErr(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	}
}

// WalletInfoHandler returns the summary of a wallet.
type WalletInfoHandler struct {
	Factory *factory.Factory
	Debug   bool
}

func (h *WalletInfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	wal, err := h.Factory.Wallet(r.PathValue("name"))
	if err != nil {
		JSONError(w, err, h.Debug)
		return
	}
	info, err := wal.Info()
	if err != nil {
		JSONError(w, err, h.Debug)
		return
	}
	JSONResp(w, http.StatusOK, info)
}

// MembersHandler lists the members of a wallet.
type MembersHandler struct {
	Factory *factory.Factory
	Debug   bool
}

func (h *MembersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	wal, err := h.Factory.Wallet(r.PathValue("name"))
	if err != nil {
		JSONError(w, err, h.Debug)
		return
	}
	members, err := wal.ListMembers()
	if err != nil {
		JSONError(w, err, h.Debug)
		return
	}
	JSONResp(w, http.StatusOK, struct {
		Objects []quorum.Address `json:"objects"`
	}{
		Objects: members,
	})
}

// RequestsHandler lists the pending requests of a wallet.
type RequestsHandler struct {
	Factory *factory.Factory
	Debug   bool
}

func (h *RequestsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	wal, err := h.Factory.Wallet(r.PathValue("name"))
	if err != nil {
		JSONError(w, err, h.Debug)
		return
	}
	views, err := wal.ListRequests()
	if err != nil {
		JSONError(w, err, h.Debug)
		return
	}
	JSONResp(w, http.StatusOK, struct {
		Objects []wallet.RequestView `json:"objects"`
	}{
		Objects: views,
	})
}

// RequestHandler returns a single pending request.
type RequestHandler struct {
	Factory *factory.Factory
	Debug   bool
}

func (h *RequestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil {
		JSONErr(w, http.StatusNotFound, "request id must be a number")
		return
	}
	wal, err := h.Factory.Wallet(r.PathValue("name"))
	if err != nil {
		JSONError(w, err, h.Debug)
		return
	}
	view, err := wal.GetRequest(uint32(id))
	if err != nil {
		JSONError(w, err, h.Debug)
		return
	}
	JSONResp(w, http.StatusOK, view)
}

// TxHandler verifies the signatures of a transaction and delivers its
// message to the wallet. Signer sequences are consumed as soon as the
// signatures are valid, even if the message then fails.
type TxHandler struct {
	Factory *factory.Factory
	DB      quorum.CacheableKVStore
	Debug   bool

	// auth guards the read-check-write of signer sequences.
	auth sync.Mutex
}

type txResult struct {
	Data string `json:"data,omitempty"`
	Log  string `json:"log"`
}

func (h *TxHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	wal, err := h.Factory.Wallet(name)
	if err != nil {
		JSONError(w, err, h.Debug)
		return
	}

	raw, err := ioutil.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		JSONErr(w, http.StatusBadRequest, "Cannot read request body.")
		return
	}
	tx, err := DecodeTx(raw)
	if err != nil {
		JSONError(w, err, h.Debug)
		return
	}
	signBytes, err := tx.SignBytes()
	if err != nil {
		JSONError(w, err, h.Debug)
		return
	}

	ctx, err := h.authorize(quorum.WithWalletID(r.Context(), name), tx, signBytes, name)
	if err != nil {
		JSONError(w, err, h.Debug)
		return
	}

	handler := utils.NewLogging(utils.NewRecovery(wallet.NewHandler(wal)))
	res, err := handler.Deliver(ctx, tx.Msg)
	if err != nil {
		JSONError(w, err, h.Debug)
		return
	}
	JSONResp(w, http.StatusOK, txResult{
		Data: hex.EncodeToString(res.Data),
		Log:  res.Log,
	})
}

// authorize verifies the signatures of tx and consumes the sequence of
// every signer. Only one transaction at a time may pass, so that a
// sequence is never accepted twice.
func (h *TxHandler) authorize(ctx quorum.Context, tx *Tx, signBytes []byte, domain string) (quorum.Context, error) {
	h.auth.Lock()
	defer h.auth.Unlock()

	err := utils.Savepoint(h.DB, func(db quorum.CacheableKVStore) error {
		var err error
		ctx, err = sigs.Authorize(ctx, db, tx.Signatures, signBytes, domain)
		return err
	})
	return ctx, err
}

// SignerHandler returns the sequence a signer must use for its next
// transaction.
type SignerHandler struct {
	DB    quorum.ReadOnlyKVStore
	Debug bool
}

func (h *SignerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	addr, err := quorum.ParseAddress(r.PathValue("address"))
	if err != nil {
		JSONErr(w, http.StatusBadRequest, "address must be a valid address value.")
		return
	}
	seq, err := sigs.NewBucket().AddressSequence(h.DB, addr)
	if err != nil {
		JSONError(w, err, h.Debug)
		return
	}
	JSONResp(w, http.StatusOK, struct {
		Address  quorum.Address `json:"address"`
		Sequence int64          `json:"sequence"`
	}{
		Address:  addr,
		Sequence: seq,
	})
}

// DefaultHandler is used to handle the request that no other handler wants.
type DefaultHandler struct{}

func (h *DefaultHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	JSONErr(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
}
