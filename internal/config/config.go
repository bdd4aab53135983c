package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	ServerPort string

	JWTSecret string

	RedisURL string

	FirebaseProjectID   string
	FirebaseClientEmail string
	FirebasePrivateKey  string

	WorkerCount int

	// Agent identity: which device document this host owns.
	PairingCode string
	DeviceID    string
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables")
	}

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8080"
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	workerCount, err := strconv.Atoi(os.Getenv("WORKER_COUNT"))
	if err != nil || workerCount <= 0 {
		workerCount = 2
	}

	return &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),

		ServerPort: serverPort,

		JWTSecret: os.Getenv("JWT_SECRET"),

		RedisURL: redisURL,

		FirebaseProjectID:   os.Getenv("FIREBASE_PROJECT_ID"),
		FirebaseClientEmail: os.Getenv("FIREBASE_CLIENT_EMAIL"),
		FirebasePrivateKey:  os.Getenv("FIREBASE_PRIVATE_KEY"),

		WorkerCount: workerCount,

		PairingCode: os.Getenv("PAIRING_CODE"),
		DeviceID:    os.Getenv("DEVICE_ID"),
	}, nil
}

// FirebaseCredentialsJSON builds the service-account JSON the Firebase SDK
// expects from the individual env values. The private key in .env has
// literal "\n" strings, so we replace them with actual newlines first.
func (c *Config) FirebaseCredentialsJSON() []byte {
	privateKey := strings.ReplaceAll(c.FirebasePrivateKey, "\\n", "\n")

	return []byte(fmt.Sprintf(`{
		"type": "service_account",
		"project_id": %q,
		"private_key": %q,
		"client_email": %q,
		"token_uri": "https://oauth2.googleapis.com/token"
	}`, c.FirebaseProjectID, privateKey, c.FirebaseClientEmail))
}
