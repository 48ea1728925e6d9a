package network

import (
	"context"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/ttacon/chalk"

	"artillery/protocol"
	"artillery/store"
)

// Server exposes a store over HTTP. Every route is a single synchronous read or write
// against the store.
type Server struct {
	store     *store.Store
	addr      string
	accessLog io.Writer

	srv *http.Server
	ln  net.Listener
}

// NewServer serves st on addr. A nil accessLog disables request logging.
func NewServer(addr string, st *store.Store, accessLog io.Writer) *Server {
	return &Server{store: st, addr: addr, accessLog: accessLog}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/status", s.status).Methods(http.MethodGet)
	v1.HandleFunc("/players", s.readPlayers).Methods(http.MethodGet)
	v1.HandleFunc("/players/{name}/{fields:.+}", s.upsertPlayer).Methods(http.MethodPost, http.MethodPut)
	v1.HandleFunc("/projectiles", s.readProjectiles).Methods(http.MethodGet)
	v1.HandleFunc("/projectiles/{fields:.+}", s.addProjectile).Methods(http.MethodPost)
	v1.HandleFunc("/ws", s.websocket)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, http.StatusNotFound, "", "no such route")
	})

	if s.accessLog == nil {
		return r
	}
	return handlers.CombinedLoggingHandler(s.accessLog, r)
}

// Start binds the listener and serves in the background. Bind errors are returned.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Wrapf(err, "listen %s", s.addr)
	}
	s.ln = ln
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Println(chalk.Green.Color("hosting match " + s.store.MatchID() + " on " + ln.Addr().String()))
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Println(chalk.Red.Color("host: " + err.Error()))
		}
	}()
	return nil
}

// Addr is the bound address once Start succeeded.
func (s *Server) Addr() string {
	if s.ln == nil {
		return s.addr
	}
	return s.ln.Addr().String()
}

func (s *Server) Close() error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeBody(w, r, http.StatusOK, s.store.Status())
}

func (s *Server) readPlayers(w http.ResponseWriter, r *http.Request) {
	writeBody(w, r, http.StatusOK, protocol.Players{
		V:       protocol.Version,
		Match:   s.store.MatchID(),
		Players: s.store.Players(),
	})
}

func (s *Server) upsertPlayer(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]
	if err := protocol.ValidName(name); err != nil {
		writeRecordError(w, r, err)
		return
	}
	rec, err := protocol.ParsePlayerSegments(name, splitFields(vars["fields"]))
	if err != nil {
		writeRecordError(w, r, err)
		return
	}
	if err := s.store.UpsertPlayer(rec); err != nil {
		writeRecordError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) readProjectiles(w http.ResponseWriter, r *http.Request) {
	var after uint64
	if raw := r.URL.Query().Get("after"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "after", "cursor must be a non-negative integer")
			return
		}
		after = n
	}
	recs, next := s.store.ProjectilesAfter(after)
	if recs == nil {
		recs = []protocol.ProjectileRecord{}
	}
	writeBody(w, r, http.StatusOK, protocol.Projectiles{
		V:           protocol.Version,
		Match:       s.store.MatchID(),
		After:       after,
		Next:        next,
		Projectiles: recs,
	})
}

func (s *Server) addProjectile(w http.ResponseWriter, r *http.Request) {
	rec, err := protocol.ParseProjectileSegments(splitFields(mux.Vars(r)["fields"]))
	if err != nil {
		writeRecordError(w, r, err)
		return
	}
	rec.Owner = r.URL.Query().Get("owner")
	seq, err := s.store.AppendProjectile(rec)
	if err != nil {
		writeRecordError(w, r, err)
		return
	}
	writeBody(w, r, http.StatusCreated, protocol.Appended{Seq: seq})
}

func splitFields(raw string) []string {
	return strings.Split(strings.Trim(raw, "/"), "/")
}

func writeBody(w http.ResponseWriter, r *http.Request, code int, v any) {
	codec := protocol.Negotiate(r.Header.Get("Accept"))
	b, err := codec.Marshal(v)
	if err != nil {
		log.Printf("host: encode response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", codec.ContentType())
	w.WriteHeader(code)
	_, _ = w.Write(b)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, field, msg string) {
	writeBody(w, r, code, protocol.Error{Field: field, Message: msg})
}

func writeRecordError(w http.ResponseWriter, r *http.Request, err error) {
	var fe *protocol.FieldError
	if errors.As(err, &fe) {
		writeError(w, r, http.StatusBadRequest, fe.Field, fe.Error())
		return
	}
	writeError(w, r, http.StatusBadRequest, "", err.Error())
}
