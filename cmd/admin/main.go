// admin 是一个小型运维工具：创建账号并打印随机初始口令。
// 供首次部署或找回账号时使用，不对外暴露。
package main

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"resumeingest/internal/auth"
	"resumeingest/internal/config"
	"resumeingest/internal/database"
)

func main() {
	username := flag.String("username", "", "要创建的用户名（必填）")
	flag.Parse()

	u := strings.TrimSpace(*username)
	if u == "" {
		log.Fatal("missing required flag: --username")
	}

	// 只读取数据库相关环境变量，其余配置项（模型、存储等）在这里无意义。
	dbCfg, err := loadDatabaseConfig()
	if err != nil {
		log.Fatalf("load database config: %v", err)
	}

	db, err := database.InitDatabase(dbCfg)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}

	if err := db.AutoMigrate(&database.User{}); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}

	var existing database.User
	switch err := db.Where("username = ?", u).First(&existing).Error; {
	case err == nil:
		log.Fatalf("user %q already exists", u)
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		log.Fatalf("query user: %v", err)
	}

	password, err := randomPassword()
	if err != nil {
		log.Fatalf("generate password: %v", err)
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	user := database.User{Username: u, PasswordHash: hashed}
	if err := db.Create(&user).Error; err != nil {
		log.Fatalf("create user: %v", err)
	}

	fmt.Printf("user %q created (id=%d)\n", u, user.ID)
	fmt.Printf("initial password: %s\n", password)
	fmt.Println("please change the password after first login")
}

// loadDatabaseConfig 从环境变量拼出数据库配置，缺省值与 api/worker 保持一致。
func loadDatabaseConfig() (config.DatabaseConfig, error) {
	cfg := config.DatabaseConfig{
		Host:     envOr("DATABASE_HOST", "localhost"),
		Name:     envOr("POSTGRES_DB", ""),
		User:     envOr("POSTGRES_USER", ""),
		Password: envOr("POSTGRES_PASSWORD", ""),
		SSLMode:  envOr("DATABASE_SSLMODE", "disable"),
	}

	port := envOr("DATABASE_PORT", "5432")
	p, err := strconv.Atoi(port)
	if err != nil {
		return config.DatabaseConfig{}, fmt.Errorf("invalid DATABASE_PORT %q: %w", port, err)
	}
	cfg.Port = p

	if cfg.Name == "" || cfg.User == "" || cfg.Password == "" {
		return config.DatabaseConfig{}, errors.New("POSTGRES_DB, POSTGRES_USER and POSTGRES_PASSWORD are required")
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func randomPassword() (string, error) {
	buf := make([]byte, 18)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
