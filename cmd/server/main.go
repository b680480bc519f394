// Command server runs the hubcast broadcast server: every message a client
// sends is relayed to all other connected clients, with join/leave notices.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hubcast/hubcast/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	fmt.Println("Starting hubcast server...")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := server.NewConfigFromEnv()

	host := flag.String("host", "", "listen host (overrides SERVER_HOST)")
	port := flag.Int("port", 0, "listen port (overrides SERVER_PORT)")
	flag.Parse()

	if *host != "" {
		config.Host = *host
	}
	if *port != 0 {
		config.Port = *port
	}

	server.SetConfig(config)

	server.StartHub()

	mux := server.SetupRoutes()
	httpServer := server.CreateServer(config.Addr(), mux)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.StartServer(httpServer)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-quit:
		log.Printf("Received signal %s, shutting down...", sig)
	}

	if err := server.ShutdownServer(httpServer, shutdownTimeout); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	if err := server.GetHub().Shutdown(shutdownTimeout); err != nil {
		log.Printf("Hub shutdown error: %v", err)
	}
}
