package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fathima-sithara/snapshare/internal/auth"
	"github.com/fathima-sithara/snapshare/internal/config"
	"github.com/fathima-sithara/snapshare/internal/database"
	"github.com/fathima-sithara/snapshare/internal/events"
	"github.com/fathima-sithara/snapshare/internal/handlers"
	"github.com/fathima-sithara/snapshare/internal/logger"
	"github.com/fathima-sithara/snapshare/internal/mailer"
	"github.com/fathima-sithara/snapshare/internal/media"
	"github.com/fathima-sithara/snapshare/internal/metrics"
	"github.com/fathima-sithara/snapshare/internal/middleware"
	"github.com/fathima-sithara/snapshare/internal/repository"
	"github.com/fathima-sithara/snapshare/internal/routes"
	"github.com/fathima-sithara/snapshare/internal/server"
	"github.com/fathima-sithara/snapshare/internal/services"
	"github.com/fathima-sithara/snapshare/internal/storage"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type stores struct {
	users    repository.UserRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
	client   *mongo.Client
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.App.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	sugar := zl.Sugar()
	sugar.Infof("Starting snapshare in %s environment on port %d", cfg.App.Env, cfg.App.Port)

	st := openStores(cfg, sugar)

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = database.ConnectRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, sugar)
		if err != nil {
			sugar.Fatal(err)
		}
	}

	objects := openObjectStore(cfg, sugar)
	relay := media.NewRelay(objects, media.Options{
		Folder:          cfg.Media.Folder,
		MaxBytes:        cfg.MaxUploadBytes,
		MaxDimension:    cfg.Media.MaxDimension,
		JPEGQuality:     cfg.Media.JPEGQuality,
		BreakerFailures: uint32(cfg.Media.BreakerFailures),
	}, zl)

	var pub events.Publisher = events.NewLogPublisher(zl)
	if cfg.Kafka.Enabled {
		pub = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		sugar.Infof("Publishing events to kafka topic %s", cfg.Kafka.Topic)
	}

	var mail mailer.Mailer = mailer.NewLogMailer(zl)
	if cfg.Mail.Enabled {
		brevo := mailer.NewBrevoClient(cfg.Mail.APIURL, cfg.Mail.APIKey, cfg.Mail.FromEmail, cfg.Mail.FromName)
		if brevo.IsConfigured() {
			mail = brevo
			sugar.Info("Brevo mailer configured.")
		} else {
			sugar.Warn("Brevo mailer not fully configured. Emails will only be logged.")
		}
	}

	var denylist auth.Denylist = auth.NewMemoryDenylist()
	if rdb != nil {
		denylist = auth.NewRedisDenylist(rdb)
	}

	authSvc := services.NewAuthService(
		st.users,
		auth.NewHasher(auth.PasswordCost),
		auth.NewTokenManager(cfg.JWT.Secret, cfg.TokenTTL),
		denylist,
		mail,
		pub,
		zl,
		services.AuthConfig{VerifyOTPTTL: cfg.VerifyOTPTTL, ResetOTPTTL: cfg.ResetOTPTTL},
	)
	userSvc := services.NewUserService(st.users, st.posts, relay, pub, zl)
	postSvc := services.NewPostService(st.users, st.posts, st.comments, relay, pub, zl)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	ipLimiter := middleware.NewIPRateLimiter(cfg.RateLimit.IPPerMinute, cfg.RateLimit.IPBurst, zl)
	go ipLimiter.Cleanup(ctx)

	deps := server.Deps{
		Handlers: routes.Handlers{
			Users: handlers.NewUserHandler(userSvc),
			Posts: handlers.NewPostHandler(postSvc),
			Auth:  handlers.NewAuthHandler(authSvc, handlers.CookieConfig{Name: cfg.JWT.CookieName, Secure: cfg.JWT.CookieSecure}),
		},
		Authenticator: authSvc,
		Metrics:       metrics.New(),
		IPLimiter:     ipLimiter,
	}
	if rdb != nil {
		deps.AuthLimiter = middleware.NewRateLimiter(rdb, "snapshare:auth", cfg.RateLimit.AuthLimit, cfg.AuthWindow, zl)
	}
	app := server.New(cfg, deps, zl)

	go func() {
		listenAddr := fmt.Sprintf(":%d", cfg.App.Port)
		sugar.Infof("Server listening on %s", listenAddr)
		if err := app.Listen(listenAddr); err != nil {
			sugar.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	sugar.Info("Shutting down server...")
	stop()

	ctxShut, cancelShut := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShut()

	if err := app.ShutdownWithContext(ctxShut); err != nil {
		sugar.Errorf("Fiber app shutdown error: %v", err)
	}
	if err := pub.Close(); err != nil {
		sugar.Errorf("Event publisher close error: %v", err)
	}
	if st.client != nil {
		if err := st.client.Disconnect(ctxShut); err != nil {
			sugar.Errorf("MongoDB disconnect error: %v", err)
		}
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			sugar.Errorf("Redis client close error: %v", err)
		}
	}
	sugar.Info("Graceful shutdown complete.")
}

func openStores(cfg *config.Config, sugar *zap.SugaredLogger) stores {
	if cfg.Store.Driver == "memory" {
		sugar.Warn("Using the in-memory store. Data is lost on restart.")
		mem := repository.NewMemoryStore()
		return stores{users: mem.Users(), posts: mem.Posts(), comments: mem.Comments()}
	}

	db, client, err := database.ConnectMongo(cfg.Mongo.URI, cfg.Mongo.Database, sugar)
	if err != nil {
		sugar.Fatal(err)
	}
	users := repository.NewMongoUserRepo(db, cfg.Mongo.UsersCollection)
	posts := repository.NewMongoPostRepo(db, cfg.Mongo.PostsCollection)
	comments := repository.NewMongoCommentRepo(db, cfg.Mongo.CommentsCollection)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	for name, ensure := range map[string]func(context.Context) error{
		"users":    users.EnsureIndexes,
		"posts":    posts.EnsureIndexes,
		"comments": comments.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			sugar.Fatalf("ensure %s indexes: %v", name, err)
		}
	}
	return stores{users: users, posts: posts, comments: comments, client: client}
}

func openObjectStore(cfg *config.Config, sugar *zap.SugaredLogger) storage.ObjectStore {
	switch cfg.Media.Driver {
	case "minio":
		store, err := storage.NewMinioStore(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.Bucket, cfg.Minio.UseSSL)
		if err != nil {
			sugar.Fatalf("minio init: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.EnsureBucket(ctx); err != nil {
			sugar.Fatalf("minio bucket: %v", err)
		}
		return store
	case "memory":
		sugar.Warn("Using the in-memory object store. Uploaded images are lost on restart.")
		return storage.NewMemoryStore(cfg.Minio.Bucket)
	default:
		store, err := storage.NewS3Store(context.Background(), cfg.AWS.Region, cfg.AWS.Bucket, cfg.AWS.Endpoint, cfg.AWS.PublicRead)
		if err != nil {
			sugar.Fatalf("s3 init: %v", err)
		}
		return store
	}
}
