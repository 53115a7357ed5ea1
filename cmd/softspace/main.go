package main

import (
	"context"
	"database/sql"
	"log"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Theadekanmi/softspace/pkg/controller"
	"github.com/Theadekanmi/softspace/pkg/feed"
	"github.com/Theadekanmi/softspace/pkg/logger"
	"github.com/Theadekanmi/softspace/pkg/middleware"
	"github.com/Theadekanmi/softspace/pkg/render"
	"github.com/Theadekanmi/softspace/pkg/sessions"
	"github.com/Theadekanmi/softspace/pkg/storage"
	"github.com/Theadekanmi/softspace/pkg/user"
	"github.com/Theadekanmi/softspace/pkg/user/api"
)

type EnvConfig map[string]string

func init() {
	rand.Seed(time.Now().UnixNano())
}

func main() {
	var cfg EnvConfig = readDotenv()
	err := godotenv.Load()
	if err != nil {
		log.Fatal("Error loading .env file")
	}

	db, err := sql.Open("pgx", "postgresql://localhost/"+cfg["POSTGRES_DB"]+"?sslmode=disable")
	if err != nil {
		log.Printf("Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("unable to reach PostgreSQL: %v", err)
	}

	redisConn, err := redis.DialURL(cfg["REDIS_ADDR"])
	if err != nil {
		log.Fatalf("main: can't connect to Redis")
	}

	adapter, mongoTeardown := buildAdapter(cfg)
	defer mongoTeardown()

	store := feed.NewStore()
	renderer := render.New(render.DefaultConfig())
	ctrl := controller.New(store, adapter, renderer, saveTimeout(cfg))
	ctrl.Start(context.Background())

	usersRepo := user.NewUserRepo(db)
	sessionManager := sessions.NewSessionManager(cfg["SECRET_KEY"], redisConn)
	feedHandler := controller.NewFeedHandler(ctrl)
	userHandler := api.NewUserHandler(usersRepo, sessionManager)

	r := mux.NewRouter()

	// Generate fake content to have better UI experience
	// seed(usersRepo, store, adapter)

	apiRouter := r.PathPrefix("/api").Subrouter()

	// Feed
	apiRouter.HandleFunc("/feed", feedHandler.Feed).Methods("GET")
	apiRouter.HandleFunc("/posts", feedHandler.CreatePost).Methods("POST")
	apiRouter.HandleFunc("/post/{post_id}/comments", feedHandler.AddComment).Methods("POST")
	apiRouter.HandleFunc("/post/{post_id}/comment/{comment_id}/replies", feedHandler.AddReply).Methods("POST")
	apiRouter.HandleFunc("/{kind}/{id}", feedHandler.Edit).Methods("PUT")
	apiRouter.HandleFunc("/{kind}/{id}", feedHandler.Delete).Methods("DELETE")
	apiRouter.HandleFunc("/{kind}/{id}/like", feedHandler.ToggleLike).Methods("POST")

	// Edit / compose-reply modes
	apiRouter.HandleFunc("/{kind}/{id}/edit-mode", feedHandler.BeginEdit).Methods("POST")
	apiRouter.HandleFunc("/comment/{comment_id}/reply-mode", feedHandler.BeginReply).Methods("POST")
	apiRouter.HandleFunc("/mode", feedHandler.CancelMode).Methods("DELETE")

	// Article-embedded comment blocks
	apiRouter.HandleFunc("/article", feedHandler.ArticleThread).Methods("GET")

	// Viewer accounts
	apiRouter.HandleFunc("/register", userHandler.Register).Methods("POST")
	apiRouter.HandleFunc("/login", userHandler.LogIn).Methods("POST")
	apiRouter.HandleFunc("/logout", userHandler.SignOut).Methods("POST")

	auth := middleware.NewAuthMiddleware(sessionManager, usersRepo)
	r.Use(auth.Middleware)

	logMiddleware := middleware.NewLoggingMiddleware(logger.Run(cfg["LOG_LEVEL"]))
	r.Use(logMiddleware.SetupTracing)
	r.Use(logMiddleware.SetupLogging)
	r.Use(logMiddleware.AccessLog)

	// Widget assets are served relative to the project root
	spa := spaHandler{staticPath: "web", indexPath: "index.html"}
	r.PathPrefix("/").Handler(spa)

	log.Println("Serving at http://localhost:8080/")
	log.Fatalln(http.ListenAndServe(":8080", r))
}

// buildAdapter picks the persistence variant: MongoDB when MONGODB_URI
// is set, the local snapshot directory otherwise. The store's contract
// is identical either way.
func buildAdapter(cfg EnvConfig) (controller.Adapter, func()) {
	if uri := cfg["MONGODB_URI"]; uri != "" {
		mongoCtx, mongoCtxCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer mongoCtxCancel()
		mongoClient, err := mongo.Connect(mongoCtx, options.Client().ApplyURI(uri))
		if err != nil {
			log.Fatalln("main: can't connect to MongoDB,", err)
		}
		if err := mongoClient.Ping(mongoCtx, nil); err != nil {
			log.Fatalln("main: unable to connect to MongoDB,", err)
		}
		postsCol := mongoClient.Database("softspace").Collection("posts")
		teardown := func() {
			if err := mongoClient.Disconnect(context.Background()); err != nil {
				log.Println("main: failed disconnecting from MongoDB,", err)
			}
		}
		return storage.NewMongoAdapter(postsCol), teardown
	}

	dir := cfg["DATA_DIR"]
	if dir == "" {
		dir = "data"
	}
	adapter, err := storage.NewSnapshotAdapter(dir)
	if err != nil {
		log.Fatalln("main: can't set up snapshot storage,", err)
	}
	return adapter, func() {}
}

func saveTimeout(cfg EnvConfig) time.Duration {
	if raw := cfg["SAVE_TIMEOUT"]; raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			return d
		}
	}
	return 10 * time.Second
}

func readDotenv() EnvConfig {
	env, err := godotenv.Read()
	if err != nil {
		log.Fatal("failed reading .env file:", err)
	}
	return env
}
