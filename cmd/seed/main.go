// Herramienta de seed: da de alta (o actualiza) un editor con su
// contraseña hasheada. Pensada para entornos de dev y staging.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/dropDatabas3/tintero/internal/config"
	"github.com/dropDatabas3/tintero/internal/security/password"
)

func main() {
	var (
		flagConfigPath = flag.String("config", "", "ruta a config.yaml (fallback: $CONFIG_PATH)")
		flagEnvFile    = flag.String("env-file", ".env", "ruta a .env (si existe, se carga)")
		flagUsername   = flag.String("username", "", "username del editor")
		flagPassword   = flag.String("password", "", "contraseña en claro (se hashea acá)")
	)
	flag.Parse()

	if *flagUsername == "" || *flagPassword == "" {
		log.Fatal("faltan -username y/o -password")
	}

	_ = godotenv.Load(*flagEnvFile)

	cfgPath := *flagConfigPath
	if cfgPath == "" {
		cfgPath = os.Getenv("CONFIG_PATH")
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	hash, err := password.Hash(password.Default, *flagPassword)
	if err != nil {
		log.Fatalf("hash: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Storage.DSN)
	if err != nil {
		log.Fatalf("pgxpool: %v", err)
	}
	defer pool.Close()

	const q = `
INSERT INTO editors (user_id, username, password_hash)
VALUES ($1, $2, $3)
ON CONFLICT (username) DO UPDATE SET password_hash = EXCLUDED.password_hash
RETURNING user_id::text`
	var id string
	if err := pool.QueryRow(ctx, q, uuid.NewString(), *flagUsername, hash).Scan(&id); err != nil {
		log.Fatalf("insert editor: %v", err)
	}
	fmt.Printf("editor %s listo (user_id=%s)\n", *flagUsername, id)
}
