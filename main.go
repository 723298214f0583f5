package main

import (
	"net/http"
	"os"

	"github.com/barbaritakodi-cell/sender/config"
	"github.com/barbaritakodi-cell/sender/database"
	"github.com/barbaritakodi-cell/sender/handlers"
	"github.com/barbaritakodi-cell/sender/logger"
	"github.com/barbaritakodi-cell/sender/middleware"
	"github.com/barbaritakodi-cell/sender/services"
)

func main() {
	config.Init()

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./sender.db"
	}
	if err := database.Init(dbPath); err != nil {
		logger.Fatalf("database init failed: %v", err)
	}
	defer database.Close()

	middleware.InitCleanup()

	wsService := services.NewWebSocketService()
	sendService := services.NewSendService(wsService.BroadcastChannel())
	handler := handlers.NewHandler(sendService, wsService)

	// Public routes
	http.HandleFunc("/login", handler.LoginPageHandler)
	http.HandleFunc("/api/login", handler.LoginHandler)

	// Operator routes
	http.HandleFunc("/", middleware.AuthMiddleware(handler.IndexHandler))
	http.HandleFunc("/logout", middleware.AuthMiddleware(handler.LogoutHandler))
	http.HandleFunc("/ws", middleware.AuthMiddleware(handler.WebSocketHandler))
	http.HandleFunc("/api/config", middleware.AuthMiddleware(handler.ConfigHandler))
	http.HandleFunc("/api/upload", middleware.AuthMiddleware(handler.UploadHandler))
	http.HandleFunc("/api/sample", middleware.AuthMiddleware(handler.SampleHandler))
	http.HandleFunc("/api/template/check", middleware.AuthMiddleware(handler.TemplateCheckHandler))
	http.HandleFunc("/api/attachments", middleware.AuthMiddleware(handler.AttachmentsHandler))
	http.HandleFunc("/api/test-connection", middleware.AuthMiddleware(handler.TestConnectionHandler))
	http.HandleFunc("/api/send", middleware.AuthMiddleware(handler.SendHandler))
	http.HandleFunc("/api/send/stop", middleware.AuthMiddleware(handler.StopHandler))
	http.HandleFunc("/api/send/status", middleware.AuthMiddleware(handler.StatusHandler))
	http.HandleFunc("/api/logs", middleware.AuthMiddleware(handler.LogsHandler))
	http.HandleFunc("/api/logs/export", middleware.AuthMiddleware(handler.ExportLogsHandler))
	http.HandleFunc("/api/stats", middleware.AuthMiddleware(handler.StatsHandler))
	http.HandleFunc("/api/history", middleware.AuthMiddleware(handler.HistoryHandler))
	http.HandleFunc("/api/recipients", middleware.AuthMiddleware(handler.RecipientsHandler))
	http.HandleFunc("/api/reset", middleware.AuthMiddleware(handler.ResetDatabaseHandler))

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	logger.Infof("server started on http://localhost%s", addr)
	logger.Infof("provider: %s", config.Snapshot().Provider)

	logger.Fatalf("server stopped: %v", http.ListenAndServe(addr, nil))
}
