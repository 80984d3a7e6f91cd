// Package seed fills the products table with a deterministic demo catalog of
// phone spare parts.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yangxb919/prspares-website/internal/domain"
	"github.com/yangxb919/prspares-website/pkg/database"
	"github.com/yangxb919/prspares-website/pkg/slug"
)

// DefaultBatchSize is the number of rows per INSERT statement.
const DefaultBatchSize = 500

// QuotePrice is stored instead of a number for parts priced on request.
const QuotePrice = "Ask for quote"

// namespace keeps product ids stable across runs.
var namespace = uuid.MustParse("6f1c9d52-3b8e-4c1a-9a57-2d0c4e7b8f31")

type phoneModel struct {
	token string
	names []string
}

var models = []phoneModel{
	{"iphone", []string{"iPhone 11", "iPhone 12 Pro", "iPhone 13", "iPhone 14 Pro Max", "iPhone 15"}},
	{"samsung", []string{"Galaxy S21", "Galaxy S22 Ultra", "Galaxy A54", "Galaxy Note 20"}},
	{"ipad", []string{"iPad Air 4", "iPad Pro 11", "iPad Mini 6"}},
	{"huawei", []string{"P30 Pro", "Mate 40"}},
	{"xiaomi", []string{"Redmi Note 12", "Mi 11"}},
	{"google-pixel", []string{"Pixel 6", "Pixel 7 Pro"}},
	{"oppo", []string{"Find X5", "Reno 8"}},
	{"motorola", []string{"Moto G Power", "Edge 30"}},
}

type part struct {
	name     string
	minPrice float64
	maxPrice float64
}

var parts = []part{
	{"OLED Screen Assembly", 45, 220},
	{"LCD Screen Assembly", 20, 90},
	{"Battery", 8, 35},
	{"Charging Port Flex", 3, 15},
	{"Back Glass", 5, 30},
	{"Rear Camera", 12, 80},
	{"Loudspeaker", 2, 10},
}

// Generate returns n products. The same n and rng seed give the same catalog.
func Generate(n int, rng *rand.Rand) []domain.Product {
	products := make([]domain.Product, 0, n)
	created := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < n; i++ {
		m := models[i%len(models)]
		name := m.names[rng.IntN(len(m.names))]
		p := parts[rng.IntN(len(parts))]
		title := name + " " + p.name

		specs := domain.Specs{
			"model":    m.token,
			"part":     p.name,
			"currency": "USD",
		}
		if i%20 == 19 {
			specs["price"] = QuotePrice
		} else {
			price := p.minPrice + rng.Float64()*(p.maxPrice-p.minPrice)
			specs["price"] = math.Round(price*100) / 100
		}

		at := created.Add(time.Duration(i) * time.Minute)
		products = append(products, domain.Product{
			ID:        uuid.NewSHA1(namespace, []byte(fmt.Sprintf("product:%d", i))).String(),
			Title:     &title,
			Specs:     specs,
			Images:    []string{"https://cdn.prspares.com/parts/" + slug.Generate(title) + ".jpg"},
			CreatedAt: &at,
		})
	}
	return products
}

// Insert writes products in batches, skipping ids that already exist, and
// returns the number of rows inserted.
func Insert(ctx context.Context, db database.DBTX, products []domain.Product, batchSize int, logger *slog.Logger) (int, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	inserted := 0
	for start := 0; start < len(products); start += batchSize {
		end := min(start+batchSize, len(products))
		query, args, err := insertStatement(products[start:end])
		if err != nil {
			return inserted, err
		}

		tag, err := db.Exec(ctx, query, args...)
		if err != nil {
			return inserted, fmt.Errorf("insert products %d-%d: %w", start, end, err)
		}
		inserted += int(tag.RowsAffected())
		logger.Info("seeded product batch",
			slog.Int("from", start),
			slog.Int("to", end),
			slog.Int64("inserted", tag.RowsAffected()),
		)
	}
	return inserted, nil
}

func insertStatement(batch []domain.Product) (string, []any, error) {
	const cols = 5
	var sb strings.Builder
	sb.WriteString("INSERT INTO products (id, title, specs, images, created_at) VALUES ")

	args := make([]any, 0, len(batch)*cols)
	for i, p := range batch {
		specs, err := json.Marshal(p.Specs)
		if err != nil {
			return "", nil, fmt.Errorf("encode specs for product %s: %w", p.ID, err)
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * cols
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4, base+5)
		args = append(args, p.ID, p.Title, specs, p.Images, p.CreatedAt)
	}
	sb.WriteString(" ON CONFLICT (id) DO NOTHING")
	return sb.String(), args, nil
}
