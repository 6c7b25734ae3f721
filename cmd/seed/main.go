// Seed applies the schema and loads a small set of sample users and
// products for local development.
package main

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-order-inventory/internal/config"
	"github.com/ariefcatur/go-order-inventory/internal/orders"
	"github.com/ariefcatur/go-order-inventory/internal/postgres"
)

var sampleUsers = []struct {
	name, email string
}{
	{"Mario Rossi", "mario.rossi@example.com"},
	{"Giulia Bianchi", "giulia.bianchi@example.com"},
	{"Luca Verdi", "luca.verdi@example.com"},
}

var sampleProducts = []struct {
	name  string
	price string
	stock int
}{
	{"Espresso Machine", "249.90", 12},
	{"Coffee Grinder", "89.50", 30},
	{"Milk Frother", "24.99", 45},
	{"Ceramic Mug Set", "34.00", 60},
	{"French Press", "29.90", 25},
	{"Pour-Over Kettle", "54.00", 18},
	{"Digital Scale", "19.99", 40},
	{"Arabica Beans 1kg", "22.50", 120},
	{"Robusta Beans 1kg", "17.80", 90},
	{"Descaling Kit", "12.30", 75},
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "seed").Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}
	log.Info().Msg("schema applied")

	store := orders.NewPGStore(db)
	now := time.Now().UTC()

	for _, u := range sampleUsers {
		_, err := db.Exec(ctx, `
			INSERT INTO users(id, name, email, created_at)
			VALUES ($1,$2,$3,$4)
			ON CONFLICT (email) DO NOTHING`,
			uuid.NewString(), u.name, u.email, now)
		if err != nil {
			log.Fatal().Err(err).Str("email", u.email).Msg("seed user")
		}
	}

	for _, sp := range sampleProducts {
		price, err := decimal.NewFromString(sp.price)
		if err != nil {
			log.Fatal().Err(err).Msg("bad sample price")
		}
		p := &orders.Product{
			ID:            uuid.NewString(),
			Name:          sp.name,
			Price:         price,
			StockQuantity: sp.stock,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := store.InsertProduct(ctx, p); err != nil {
			log.Fatal().Err(err).Str("name", sp.name).Msg("seed product")
		}
	}

	log.Info().Int("users", len(sampleUsers)).Int("products", len(sampleProducts)).Msg("seed done")
}
