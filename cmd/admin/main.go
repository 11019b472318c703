package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"resumeMatcher/internal/auth"
	"resumeMatcher/internal/config"
	"resumeMatcher/internal/database"
)

func main() {
	var (
		email     = flag.String("email", "", "招聘方邮箱（必填）")
		username  = flag.String("username", "", "用户名（可选，默认取邮箱 @ 之前部分）")
		firstName = flag.String("first-name", "", "名（可选）")
		lastName  = flag.String("last-name", "", "姓（可选）")
		dbHost    = flag.String("db-host", "", "数据库 Host（可选，默认读 DATABASE_HOST）")
		dbPort    = flag.Int("db-port", 0, "数据库 Port（可选，默认读 DATABASE_PORT）")
		dbName    = flag.String("db-name", "", "数据库名（可选，默认读 POSTGRES_DB）")
		dbUser    = flag.String("db-user", "", "数据库用户（可选，默认读 POSTGRES_USER）")
		dbPass    = flag.String("db-password", "", "数据库密码（可选，默认读 POSTGRES_PASSWORD）")
		sslMode   = flag.String("db-sslmode", "", "数据库 SSLMODE（可选，默认读 DATABASE_SSLMODE）")
	)
	flag.Parse()

	addr := auth.NormalizeEmail(*email)
	if addr == "" || !strings.Contains(addr, "@") {
		log.Fatal("missing or invalid required flag: --email")
	}
	name := strings.TrimSpace(*username)
	if name == "" {
		name = addr[:strings.Index(addr, "@")]
	}

	dbCfg, err := loadDatabaseConfig(*dbHost, *dbPort, *dbName, *dbUser, *dbPass, *sslMode)
	if err != nil {
		log.Fatalf("load database config: %v", err)
	}

	db, err := database.InitDatabase(dbCfg)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	ctx := context.Background()
	users := database.NewUserStore(db)
	if exists, err := users.ExistsByEmail(ctx, addr); err != nil {
		log.Fatalf("query user: %v", err)
	} else if exists {
		log.Fatalf("user with email %q already exists", addr)
	}
	if exists, err := users.ExistsByUsername(ctx, name); err != nil {
		log.Fatalf("query user: %v", err)
	} else if exists {
		log.Fatalf("username %q already exists", name)
	}

	password, err := auth.GenerateRandomPassword(24)
	if err != nil {
		log.Fatalf("generate password: %v", err)
	}
	hashed, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	user := database.User{
		Username:     name,
		Email:        addr,
		PasswordHash: hashed,
		FirstName:    strings.TrimSpace(*firstName),
		LastName:     strings.TrimSpace(*lastName),
		Role:         database.RoleRecruiter,
	}
	if err := users.Create(ctx, &user); err != nil {
		log.Fatalf("create user: %v", err)
	}

	fmt.Printf("已创建招聘方账号：\n")
	fmt.Printf("邮箱: %s\n", addr)
	fmt.Printf("用户名: %s\n", name)
	fmt.Printf("初始密码: %s\n", password)
	fmt.Printf("提示：该密码仅显示一次，请妥善保存。\n")
}

func loadDatabaseConfig(host string, port int, name, user, password, sslmode string) (config.DatabaseConfig, error) {
	host = firstNonEmpty(host, os.Getenv("DATABASE_HOST"), "localhost")
	name = firstNonEmpty(name, os.Getenv("POSTGRES_DB"))
	user = firstNonEmpty(user, os.Getenv("POSTGRES_USER"))
	password = firstNonEmpty(password, os.Getenv("POSTGRES_PASSWORD"))
	sslmode = firstNonEmpty(sslmode, os.Getenv("DATABASE_SSLMODE"), "disable")

	if port <= 0 {
		if env := strings.TrimSpace(os.Getenv("DATABASE_PORT")); env != "" {
			p, err := strconv.Atoi(env)
			if err != nil {
				return config.DatabaseConfig{}, fmt.Errorf("parse DATABASE_PORT: %w", err)
			}
			port = p
		}
	}
	if port <= 0 {
		port = 5432
	}

	if name == "" {
		return config.DatabaseConfig{}, errors.New("database name is required (POSTGRES_DB)")
	}
	if user == "" {
		return config.DatabaseConfig{}, errors.New("database user is required (POSTGRES_USER)")
	}
	if password == "" {
		return config.DatabaseConfig{}, errors.New("database password is required (POSTGRES_PASSWORD)")
	}

	return config.DatabaseConfig{
		Host:     host,
		Port:     port,
		Name:     name,
		User:     user,
		Password: password,
		SSLMode:  sslmode,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
