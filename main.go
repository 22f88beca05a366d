package main

import (
	"flag"
	"fmt"
	"moodboard-server/clock"
	"moodboard-server/core"
	"moodboard-server/gemini"
	"moodboard-server/handlers/api/board"
	"moodboard-server/handlers/api/media"
	"moodboard-server/handlers/api/video"
	"moodboard-server/handlers/websocket"
	"moodboard-server/jobs"
	"moodboard-server/stores"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

type server struct {
	store    stores.Store
	gate     core.CredentialGate
	surfaces *jobs.Surfaces
	studio   *websocket.Studio
	gatherer prometheus.Gatherer
}

func setupRouter(s server) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	corsOptions := cors.Options{
		AllowOriginFunc: func(r *http.Request, origin string) bool {
			if origin == "" {
				return false
			}

			parsed, err := url.Parse(origin)
			if err != nil {
				return false
			}

			switch parsed.Scheme {
			case "http", "https":
				switch parsed.Hostname() {
				case "localhost", "127.0.0.1", "::1":
					return true
				}
			}

			return false
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}

	r.Use(cors.Handler(corsOptions))

	var broadcaster board.Broadcaster
	if s.studio != nil {
		broadcaster = s.studio
	}

	r.Route("/api/board", func(r chi.Router) {
		r.Get("/items", board.HandleList(s.store))
		r.Post("/items", board.HandleAdd(s.store, broadcaster))
		r.Post("/notes", board.HandleAddNote(s.store, broadcaster))
		r.Get("/grid", board.HandleGrid(s.store))
		r.Route("/items/{id}", func(r chi.Router) {
			r.Patch("/", board.HandlePatch(s.store, broadcaster))
			r.Put("/text", board.HandleCommitText(s.store, broadcaster))
			r.Delete("/", board.HandleDelete(s.store, broadcaster))
		})
	})

	r.Route("/api/video", func(r chi.Router) {
		r.Get("/credential", video.HandleGetCredential(s.gate))
		r.Put("/credential", video.HandleSelectCredential(s.gate))
		r.Post("/surfaces", video.HandleCreateSurface(s.surfaces))
		r.Route("/surfaces/{id}", func(r chi.Router) {
			r.Get("/", video.HandleGetSurface(s.surfaces))
			r.Delete("/", video.HandleDeleteSurface(s.surfaces))
			r.Post("/jobs", video.HandleStart(s.surfaces, s.store))
			r.Post("/collect", video.HandleCollect(s.surfaces, s.store))
		})
	})

	r.Post("/api/media", media.HandleUpload(s.store))
	r.Get("/media/{id}", media.HandleGet(s.store))

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

func waitForShutdown(ioo *socketio.Server, studio *websocket.Studio, surfaces *jobs.Surfaces) {
	exit := make(chan struct{})
	SignalC := make(chan os.Signal, 1)

	signal.Notify(SignalC, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		for s := range SignalC {
			switch s {
			case os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT:
				close(exit)
				return
			}
		}
	}()

	<-exit
	logrus.Info("Shutting down...")
	studio.Close()
	surfaces.Close()
	ioo.Close(nil)
	os.Exit(0)
}

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}

	logLevel := flag.String("loglevel", "info", "Set the logging level: debug, info, warn, error, fatal, panic")
	listenAddr := flag.String("listen", ":3002", "Set the server listen address")
	pollInterval := flag.Duration("poll-interval", jobs.DefaultPollInterval, "Interval between video operation status checks")
	progressInterval := flag.Duration("progress-interval", jobs.DefaultProgressInterval, "Interval between progress message rotations")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level: %v\n", err)
		os.Exit(1)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	store := stores.GetStore()

	cfg := gemini.ConfigFromEnv()
	if cfg.APIKey == "" {
		logrus.Warn("GEMINI_API_KEY is not set, a key must be selected before generating videos")
	}
	gate := gemini.NewKeyGate(cfg.APIKey)
	client := gemini.NewClient(cfg, gate, nil)

	metrics := jobs.NewMetrics(prometheus.DefaultRegisterer)
	surfaces := jobs.NewSurfaces(client, gate, store, clock.Real{}, metrics, jobs.Config{
		PollInterval:     *pollInterval,
		ProgressInterval: *progressInterval,
	})

	studio := websocket.NewStudio(store, surfaces)
	ioo := studio.SetupSocketIO()

	r := setupRouter(server{
		store:    store,
		gate:     gate,
		surfaces: surfaces,
		studio:   studio,
		gatherer: prometheus.DefaultGatherer,
	})
	r.Handle("/socket.io/", ioo.ServeHandler(nil))

	logrus.WithFields(logrus.Fields{
		"addr":        *listenAddr,
		"video_model": cfg.VideoModel,
	}).Info("starting server")
	go func() {
		if err := http.ListenAndServe(*listenAddr, r); err != nil {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	logrus.Debug("Server is running in the background")
	waitForShutdown(ioo, studio, surfaces)
}
