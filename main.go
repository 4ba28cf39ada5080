package main

import (
	"flag"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"chatrelay/internal/auth"
	"chatrelay/internal/config"
	"chatrelay/internal/handlers"
	"chatrelay/internal/middleware"
	"chatrelay/internal/presence"
	"chatrelay/internal/store/sqlstore"
	"chatrelay/internal/ws"
)

var fixIndexes = flag.Bool("fix-indexes", false, "repair the users.email unique index and exit")

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	auth.Secret = []byte(cfg.JWTSecret)

	// Initialize Database
	store, err := sqlstore.New(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}

	if *fixIndexes {
		if err := store.FixEmailIndex(); err != nil {
			log.Fatal(err)
		}
		log.Println("Email index repaired")
		return
	}

	// Initialize WebSocket Hub
	tracker := presence.NewTracker()
	hub := ws.NewHub(store, tracker, cfg.DeliveryDelay)
	go hub.Run()

	// Initialize Handlers
	authHandler := &handlers.AuthHandler{Store: store}
	chatHandler := &handlers.ChatHandler{Store: store}
	messageHandler := &handlers.MessageHandler{Store: store}

	r := mux.NewRouter()
	r.Use(loggingMiddleware)

	// API Endpoints
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/users/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/users/login", authHandler.Login).Methods("POST")
	api.HandleFunc("/users/by-name", authHandler.UserByName).Methods("POST")
	api.HandleFunc("/users", authHandler.ListUsers).Methods("GET")
	api.HandleFunc("/chats/group", chatHandler.CreateGroupChat).Methods("POST")
	api.HandleFunc("/chats/{userId:[0-9]+}", chatHandler.GetUserChats).Methods("GET")
	api.HandleFunc("/chats", chatHandler.CreateChat).Methods("POST")
	api.HandleFunc("/messages/{chatId:[0-9]+}", messageHandler.GetChatMessages).Methods("GET")
	api.HandleFunc("/messages", messageHandler.SendMessage).Methods("POST")

	// WebSocket Endpoint (token-authenticated)
	r.Handle("/ws", middleware.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWs(hub, w, r, middleware.UserID(r))
	})))

	// Serve index.html with cache-busting timestamp
	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, cfg.StaticDir+"/index.html")
	})

	// Serve static files with cache-busting headers for development
	r.PathPrefix("/").Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Disable caching for CSS and JS files in development
		if strings.HasSuffix(r.URL.Path, ".css") || strings.HasSuffix(r.URL.Path, ".js") {
			w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
			w.Header().Set("Pragma", "no-cache")
			w.Header().Set("Expires", "0")
		}
		http.FileServer(http.Dir(cfg.StaticDir)).ServeHTTP(w, r)
	}))

	log.Println("Starting server on", cfg.Addr)
	log.Fatal(http.ListenAndServe(cfg.Addr, r))
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}
