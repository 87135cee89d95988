// recorderd ingests telemetry from a serial device and serves the sliding
// sample window to UI clients over HTTP and WebSocket. It is the thin
// collaborator layer around the recorder core: port selection, the
// freeze/unfreeze toggle and the periodic refresh all live here.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/serial-recorder/recorder"
)

type fileConfig struct {
	Port              string `toml:"port"`
	BaudRate          int    `toml:"baud_rate"`
	SamplesPerChannel int    `toml:"samples_per_channel"`
	Listen            string `toml:"listen"`
	RefreshMs         int    `toml:"refresh_ms"`
}

func main() {
	var (
		configPath = flag.String("config", "", "path to TOML config file")
		port       = flag.String("port", "", "serial port, e.g. /dev/ttyUSB0 or COM3")
		baud       = flag.Int("baud", 921600, "baud rate")
		samples    = flag.Int("samples", recorder.DefaultCapacity, "samples per channel to retain")
		listen     = flag.String("listen", ":8080", "HTTP listen address")
		refresh    = flag.Duration("refresh", 100*time.Millisecond, "WebSocket push period")
		list       = flag.Bool("list", false, "list available serial ports and exit")
		debug      = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
	if !*debug {
		log = log.Level(zerolog.InfoLevel)
	}

	if *list {
		for _, p := range recorder.AvailablePorts() {
			fmt.Println(p)
		}
		return
	}

	cfg := fileConfig{
		Port:              *port,
		BaudRate:          *baud,
		SamplesPerChannel: *samples,
		Listen:            *listen,
		RefreshMs:         int(refresh.Milliseconds()),
	}
	if *configPath != "" {
		if _, err := toml.DecodeFile(*configPath, &cfg); err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("loading config file")
		}
		// Flags passed explicitly win over the file.
		flag.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "port":
				cfg.Port = *port
			case "baud":
				cfg.BaudRate = *baud
			case "samples":
				cfg.SamplesPerChannel = *samples
			case "listen":
				cfg.Listen = *listen
			case "refresh":
				cfg.RefreshMs = int(refresh.Milliseconds())
			}
		})
	}
	if cfg.Port == "" {
		log.Fatal().Msg("no serial port given; use -port or the config file (see -list)")
	}

	svc := recorder.New(recorder.Config{}, log.With().Str("component", "recorder").Logger())
	if err := svc.Open(cfg.Port, cfg.BaudRate, cfg.SamplesPerChannel); err != nil {
		log.Fatal().Err(err).Msg("opening serial connection")
	}
	defer svc.Close()

	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: newHandler(svc, log, time.Duration(cfg.RefreshMs)*time.Millisecond),
	}

	go func() {
		log.Info().Str("addr", cfg.Listen).Msg("serving")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	_ = svc.Close()
}

type tablePayload struct {
	FirstIndex int64    `json:"first_index"`
	Channels   []string `json:"channels"`
	Rows       [][]int  `json:"rows"`
	Frozen     bool     `json:"frozen"`
}

func newHandler(svc *recorder.Service, log zerolog.Logger, refresh time.Duration) http.Handler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /data", func(w http.ResponseWriter, r *http.Request) {
		writeTable(w, svc)
	})

	mux.HandleFunc("POST /freeze", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Freeze(); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("POST /unfreeze", func(w http.ResponseWriter, r *http.Request) {
		svc.Unfreeze()
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(svc.MetricsSnapshot())
	})

	mux.HandleFunc("GET /ports", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(recorder.AvailablePorts())
	})

	mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}
		defer conn.Close()
		log.Info().Str("remote", r.RemoteAddr).Msg("websocket client connected")

		ticker := time.NewTicker(refresh)
		defer ticker.Stop()
		for range ticker.C {
			table, err := svc.Read(svc.Frozen())
			if err != nil {
				// Not an error worth dropping the client over; the device
				// may simply not have produced a row yet.
				continue
			}
			payload := tablePayload{
				FirstIndex: table.FirstIndex,
				Channels:   table.Channels(),
				Rows:       table.Rows,
				Frozen:     svc.Frozen(),
			}
			if err := conn.WriteJSON(payload); err != nil {
				log.Info().Str("remote", r.RemoteAddr).Msg("websocket client disconnected")
				return
			}
			if !svc.IsConnected() {
				// Push the final state, then let the client decide whether
				// to prompt for a reconnect.
				log.Warn().Msg("connection lost, closing websocket stream")
				return
			}
		}
	})

	return mux
}

func writeTable(w http.ResponseWriter, svc *recorder.Service) {
	table, err := svc.Read(svc.Frozen())
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(tablePayload{
		FirstIndex: table.FirstIndex,
		Channels:   table.Channels(),
		Rows:       table.Rows,
		Frozen:     svc.Frozen(),
	})
}
