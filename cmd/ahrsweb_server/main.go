/*
Host an ahrsweb room: a simulation or a live filter publishes attitude data
to it and any number of viewers receive it.
*/

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yin1008/paparazzi/ahrsweb"
)

func main() {
	var addr = flag.String("addr", fmt.Sprintf(":%d", ahrsweb.Port), "The port for the AHRS data publication.")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// get the room going
	r := ahrsweb.NewRoom()
	go r.Run(ctx)

	mux := http.NewServeMux()
	mux.Handle(ahrsweb.Path, r)
	mux.HandleFunc("/status", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"clients": r.Len()})
	})
	srv := &http.Server{Addr: *addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Println("AHRSWeb: Starting web server on", *addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("AHRSWeb: ListenAndServe fatal error:", err.Error())
	}
	log.Println("AHRSWeb: stopped")
}
