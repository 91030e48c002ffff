package gameserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/nymirith/adventure/internal/auth"
	"github.com/nymirith/adventure/internal/config"
	"github.com/nymirith/adventure/internal/game/session"
	"github.com/nymirith/adventure/internal/storage/postgres"
)

// Service exposes the engine over HTTP: credential endpoints that issue
// session tokens, and the websocket endpoint game clients connect to.
// It satisfies the lifecycle Service interface.
type Service struct {
	cfg      config.ServerConfig
	engine   *Engine
	tokens   *auth.Tokens
	accounts *postgres.AccountRepository
	logger   *zap.Logger
	upgrader websocket.Upgrader
	srv      *http.Server
}

// NewService creates the HTTP/websocket front of the engine.
//
// Precondition: engine, tokens, accounts, and logger must be non-nil.
func NewService(cfg config.ServerConfig, engine *Engine, tokens *auth.Tokens, accounts *postgres.AccountRepository, logger *zap.Logger) *Service {
	s := &Service{
		cfg:      cfg,
		engine:   engine,
		tokens:   tokens,
		accounts: accounts,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The browser client is served from arbitrary origins in
			// development; token auth gates the connection.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/register", s.handleRegister)
	mux.HandleFunc("/auth/login", s.handleLogin)
	mux.HandleFunc("/ws", s.handleWS)
	s.srv = &http.Server{Addr: cfg.Addr(), Handler: mux}
	return s
}

// Start runs the HTTP listener. Blocks until Stop is called.
func (s *Service) Start() error {
	s.logger.Info("game server listening", zap.String("addr", s.cfg.Addr()))
	if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts the listener down.
func (s *Service) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Warn("http shutdown", zap.Error(err))
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (s *Service) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		http.Error(w, "username and password required", http.StatusBadRequest)
		return
	}

	acct, err := s.accounts.Create(r.Context(), req.Username, req.Password)
	if errors.Is(err, postgres.ErrAccountExists) {
		http.Error(w, "username taken", http.StatusConflict)
		return
	}
	if err != nil {
		s.logger.Error("creating account", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.writeToken(w, acct.ID, acct.Username)
}

func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "username and password required", http.StatusBadRequest)
		return
	}

	acct, err := s.accounts.Authenticate(r.Context(), req.Username, req.Password)
	if errors.Is(err, postgres.ErrAccountNotFound) || errors.Is(err, postgres.ErrInvalidCredentials) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if err != nil {
		s.logger.Error("authenticating account", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.writeToken(w, acct.ID, acct.Username)
}

func (s *Service) writeToken(w http.ResponseWriter, accountID int64, username string) {
	token, err := s.tokens.Issue(accountID, username)
	if err != nil {
		s.logger.Error("issuing token", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(tokenResponse{Token: token})
}

func (s *Service) handleWS(w http.ResponseWriter, r *http.Request) {
	claims, err := s.tokens.Verify(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	accountID, err := claims.AccountID()
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(conn, s.cfg.SendBuffer, s.cfg.WriteTimeout, s.logger)
	sess, err := s.engine.Connect(r.Context(), accountID, claims.Username, client)
	if err != nil {
		s.logger.Error("connecting session",
			zap.Int64("account", accountID),
			zap.Error(err),
		)
		client.Send(TypeError, "could not establish session")
		client.Close()
		return
	}
	sess.Close = client.Close

	s.readLoop(conn, client, sess)

	s.engine.Disconnect(context.Background(), accountID, sess.ConnID)
	client.Close()
}

// suggestReply maps an autocomplete request type to its reply type and
// whether the suggestion advances to the next candidate. autocomplete_get
// cycles; autocomplete_suggest fills the first match.
func suggestReply(reqType string) (string, bool) {
	if reqType == TypeSuggestGet {
		return TypeAutocomplete, true
	}
	return TypeSuggestion, false
}

// readLoop pumps inbound frames until the connection drops.
func (s *Service) readLoop(conn *websocket.Conn, client *Client, sess *session.Session) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}

		env, err := DecodeEnvelope(raw)
		if err != nil {
			client.Send(TypeError, "malformed message")
			continue
		}

		switch env.Type {
		case TypeGame:
			text, err := DecodeText(env)
			if err != nil {
				client.Send(TypeError, "malformed message")
				continue
			}
			if err := s.engine.HandleLine(sess, text); err != nil {
				// Internal fault: drop this connection, the world keeps running.
				s.logger.Error("handling input",
					zap.Int64("account", sess.AccountID),
					zap.Error(err),
				)
				client.Send(TypeError, "something went wrong")
				return
			}
		case TypeSuggest, TypeSuggestGet:
			text, err := DecodeText(env)
			if err != nil {
				client.Send(TypeError, "malformed message")
				continue
			}
			replyType, cycle := suggestReply(env.Type)
			client.Send(replyType, s.engine.HandleSuggest(sess, text, cycle))
		case TypePing:
			client.Send(TypePong, "")
		default:
			client.Send(TypeError, "unknown message type")
		}
	}
}
