// cmd/seeduser/main.go: creates or updates a user. The first supervisor of
// a fresh database is bootstrapped with it.
//
//	go run ./cmd/seeduser -username admin -password secreto -rol administrador
//	go run ./cmd/seeduser -hash-only -password secreto
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"despensa/internal/config"
	"despensa/internal/infra"
	"despensa/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm/clause"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	username := flag.String("username", "admin", "login name")
	password := flag.String("password", "", "plain password (required)")
	nombre := flag.String("nombre", "Administrador", "display name")
	rol := flag.String("rol", "administrador", "cajero | supervisor | administrador")
	sucursal := flag.String("sucursal", "", "default branch UUID (empty = global stock)")
	hashOnly := flag.Bool("hash-only", false, "print the bcrypt hash and exit")
	flag.Parse()

	if len(*password) < 4 {
		log.Fatal().Msg("-password must have at least 4 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(*password), 12)
	if err != nil {
		log.Fatal().Err(err).Msg("bcrypt error")
	}
	if *hashOnly {
		fmt.Println(string(hash))
		return
	}

	switch *rol {
	case "cajero", "supervisor", "administrador":
	default:
		log.Fatal().Str("rol", *rol).Msg("unknown role")
	}
	u := model.Usuario{
		Username:     *username,
		Nombre:       *nombre,
		PasswordHash: string(hash),
		Rol:          *rol,
		Activo:       true,
	}
	if *sucursal != "" {
		id, err := uuid.Parse(*sucursal)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid -sucursal")
		}
		u.SucursalID = &id
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := infra.NewDatabase(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect error")
	}

	err = db.WithContext(context.Background()).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoUpdates: clause.AssignmentColumns([]string{"password_hash", "nombre", "rol", "sucursal_id", "activo", "updated_at"}),
	}).Create(&u).Error
	if err != nil {
		log.Fatal().Err(err).Msg("upsert error")
	}
	log.Info().Str("username", u.Username).Str("rol", u.Rol).
		Bool("puede_forzar_estado", cfg.PuedeForzarEstado(u.Rol)).Msg("usuario creado/actualizado")
}
