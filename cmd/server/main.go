package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/invitera/invitera/backend-go/internal/asset"
	"github.com/invitera/invitera/backend-go/internal/auth"
	"github.com/invitera/invitera/backend-go/internal/collab"
	"github.com/invitera/invitera/backend-go/internal/config"
	"github.com/invitera/invitera/backend-go/internal/document"
	"github.com/invitera/invitera/backend-go/internal/editor"
	"github.com/invitera/invitera/backend-go/internal/invite"
	mw "github.com/invitera/invitera/backend-go/internal/middleware"
	"github.com/invitera/invitera/backend-go/internal/store"
	"github.com/invitera/invitera/backend-go/internal/store/memory"
	"github.com/invitera/invitera/backend-go/internal/store/postgres"
	"github.com/invitera/invitera/backend-go/internal/store/sqlite"
)

// playgroundID is the anonymous sandbox room: no account, no persistence,
// every visitor edits a shared sample invitation.
const playgroundID = "invite_playground"

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	authService := auth.NewService(st, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	inviteService := invite.NewService(st)
	inviteHandler := invite.NewHandler(inviteService)

	// Document loader for the collaboration hub
	docLoader := func(invitationID string) (*document.Document, error) {
		if invitationID == playgroundID {
			return document.NewSampleDocument(), nil
		}
		snap, err := st.LatestSnapshot(context.Background(), invitationID)
		if err != nil {
			return nil, err
		}
		var doc document.Document
		if err := json.Unmarshal(snap.Document, &doc); err != nil {
			return nil, err
		}
		return &doc, nil
	}

	// Document saver for the collaboration hub
	docSaver := func(invitationID string, doc json.RawMessage) error {
		if invitationID == playgroundID {
			return nil
		}
		version := 1
		if prev, err := st.LatestSnapshot(context.Background(), invitationID); err == nil {
			version = prev.Version + 1
		}
		err := st.CreateSnapshot(context.Background(), &store.Snapshot{
			ID:           fmt.Sprintf("snap_%s", uuid.New().String()[:8]),
			InvitationID: invitationID,
			Version:      version,
			Document:     doc,
		})
		if err != nil {
			return fmt.Errorf("create snapshot: %w", err)
		}
		return nil
	}

	hub := collab.NewHub(docLoader, docSaver)
	go hub.Run()

	assetHandler := asset.NewHandler(cfg.AssetDir)

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	// Auth routes (public)
	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Marketplace and public viewer (no auth; guests browse)
	r.HandleFunc("/marketplace", inviteHandler.Browse).Methods("GET")
	r.HandleFunc("/i/{slug}", inviteHandler.Resolve).Methods("GET")

	// Asset endpoints (public — used by playground and authenticated users)
	r.HandleFunc("/assets/upload", assetHandler.Upload).Methods("POST", "OPTIONS")
	r.PathPrefix("/assets/").Handler(assetHandler.Serve()).Methods("GET")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)

	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	api.HandleFunc("/invitations", inviteHandler.List).Methods("GET")
	api.HandleFunc("/invitations", inviteHandler.Create).Methods("POST")
	api.HandleFunc("/invitations/{invitationId}", inviteHandler.Get).Methods("GET")
	api.HandleFunc("/invitations/{invitationId}", inviteHandler.Update).Methods("PATCH")
	api.HandleFunc("/invitations/{invitationId}", inviteHandler.Delete).Methods("DELETE")
	api.HandleFunc("/invitations/{invitationId}/publish", inviteHandler.Publish).Methods("POST")
	api.HandleFunc("/invitations/{invitationId}/unpublish", inviteHandler.Unpublish).Methods("POST")
	api.HandleFunc("/invitations/{invitationId}/invite", inviteHandler.Invite).Methods("POST")
	api.HandleFunc("/invitations/{invitationId}/members", inviteHandler.ListMembers).Methods("GET")
	api.HandleFunc("/invitations/{invitationId}/members/{userId}", inviteHandler.RemoveMember).Methods("DELETE")
	api.HandleFunc("/invitations/{invitationId}/snapshots/latest", inviteHandler.GetLatestSnapshot).Methods("GET")
	api.HandleFunc("/invitations/{invitationId}/snapshots", inviteHandler.SaveSnapshot).Methods("POST")

	// WebSocket endpoint
	r.HandleFunc("/ws/invitation/{invitationId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, authService, inviteService)
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Stop hub first to save all dirty documents
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "storage", cfg.StorageType)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StorageType {
	case "postgres":
		return postgres.NewStore(ctx, cfg.DatabaseURL)
	case "sqlite":
		return sqlite.NewStore(cfg.SQLitePath)
	case "memory", "":
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.StorageType)
	}
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *collab.Hub, authSvc *auth.Service, inviteSvc *invite.Service) {
	vars := mux.Vars(r)
	invitationID := vars["invitationId"]

	var userID, displayName, role string

	if invitationID == playgroundID {
		// Anonymous visitors get full edit rights in the sandbox.
		userID = "anon-" + uuid.New().String()[:8]
		displayName = "Anonymous"
		role = editor.RoleCreator
	} else {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		var err error
		userID, err = authSvc.ValidateToken(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		role, err = inviteSvc.MemberRole(r.Context(), invitationID, userID)
		if err != nil {
			http.Error(w, "not an invitation member", http.StatusForbidden)
			return
		}

		user, err := authSvc.GetUser(r.Context(), userID)
		if err != nil {
			http.Error(w, "user not found", http.StatusInternalServerError)
			return
		}
		displayName = user.DisplayName
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost:5173", "localhost:3000"},
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	clientID := uuid.New().String()
	client := collab.NewClient(hub, conn, userID, displayName, role, invitationID, clientID)

	hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
