package config

import (
	"os"
	"strconv"

	"minemechanics/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string
	DatabaseURL string
	BotToken    string
	AdminChatID int64

	// CCPayment
	CCPayAppID     string
	CCPayAppSecret string
	CCPayAPI       string
	ServerBaseURL  string
	ReturnURL      string

	// Deposit and miner limits
	MinDeposit    float64
	MaxDeposit    float64
	MinMinerPrice float64
	APYPercent    float64

	// Redis (rate limiter + optional conversation state store)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	StateStore    string // "memory" or "redis"
}

// Загрузка конфига из env
func Load() *Config {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}

	botToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	if botToken == "" {
		logger.Fatal("TELEGRAM_BOT_TOKEN is not set")
	}

	appID := os.Getenv("CCPAY_APP_ID")
	appSecret := os.Getenv("CCPAY_APP_SECRET")
	apiURL := os.Getenv("CCPAY_DEPOSIT_API")
	if appID == "" || appSecret == "" || apiURL == "" {
		logger.Fatal("CCPAY_APP_ID / CCPAY_APP_SECRET / CCPAY_DEPOSIT_API must be set")
	}

	baseURL := os.Getenv("SERVER_BASE_URL")
	if baseURL == "" {
		logger.Fatal("SERVER_BASE_URL is not set")
	}

	returnURL := os.Getenv("RETURN_URL")
	if returnURL == "" {
		returnURL = "https://t.me/MineMechanicsBot"
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	var adminChatID int64
	if v := os.Getenv("ADMIN_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			adminChatID = id
		}
	}

	stateStore := os.Getenv("STATE_STORE")
	if stateStore != "redis" {
		stateStore = "memory"
	}

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			redisDB = n
		}
	}

	return &Config{
		AppPort:        port,
		DatabaseURL:    dbURL,
		BotToken:       botToken,
		AdminChatID:    adminChatID,
		CCPayAppID:     appID,
		CCPayAppSecret: appSecret,
		CCPayAPI:       apiURL,
		ServerBaseURL:  baseURL,
		ReturnURL:      returnURL,
		MinDeposit:     envFloat("MIN_DEPOSIT", 0.2),
		MaxDeposit:     envFloat("MAX_DEPOSIT", 1000000),
		MinMinerPrice:  envFloat("MIN_MINER_PRICE", 1),
		APYPercent:     envFloat("APY_PERCENT", 19),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        redisDB,
		StateStore:     stateStore,
	}
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
