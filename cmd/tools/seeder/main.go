package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/misproductos/backend/internal/auth"
	"github.com/misproductos/backend/internal/domains"
	"github.com/misproductos/backend/internal/pricing"
	"github.com/misproductos/backend/internal/settings"
)

func main() {
	name := flag.String("name", "Tienda Demo", "company name of the demo tenant")
	customDomain := flag.String("domain", "", "optional custom domain for the demo tenant")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of the printed admin token")
	flag.Parse()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	label := slug.Make(*name)
	var tenantID string
	err = db.QueryRow(`
		INSERT INTO tenants (name, slug) VALUES ($1, $2)
		ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
		RETURNING id;
	`, *name, label).Scan(&tenantID)
	if err != nil {
		log.Fatalf("Failed to upsert tenant: %v", err)
	}
	log.Printf("Using Tenant ID: %s (%s)", tenantID, label)

	seedDomains(db, tenantID, label, *customDomain)
	seedRules(db, tenantID)
	seedSettings(db, tenantID)

	if token := adminToken(tenantID, *tokenTTL); token != "" {
		fmt.Printf("Admin token for %s:\n%s\n", label, token)
	}
	log.Println("Seeding completed successfully!")
}

func seedDomains(db *sql.DB, tenantID, label, custom string) {
	hosts := map[string]string{}
	if root := os.Getenv("TENANT_ROOT_DOMAIN"); strings.TrimSpace(root) != "" {
		hosts[domains.SubdomainHost(label, root)] = "subdomain"
	}
	if custom = strings.ToLower(strings.TrimSpace(custom)); custom != "" {
		hosts[custom] = "custom"
	}
	for host, kind := range hosts {
		_, err := db.Exec(`
			INSERT INTO tenant_domains (hostname, tenant_id, kind) VALUES ($1, $2, $3)
			ON CONFLICT (hostname) DO NOTHING
		`, host, tenantID, kind)
		if err != nil {
			log.Printf("Failed to insert domain %s: %v", host, err)
			continue
		}
		log.Printf("Domain %s -> %s", host, kind)
	}
}

type seedRule struct {
	name      string
	badge     sql.NullString
	kind      pricing.Kind
	value     string
	buy, get  sql.NullInt32
	scopeType string
	scopeID   sql.NullString
	minQty    int
}

func seedRules(db *sql.DB, tenantID string) {
	var count int
	if err := db.QueryRow(`SELECT count(*) FROM discount_rules WHERE tenant_id = $1`, tenantID).Scan(&count); err != nil {
		log.Fatalf("Failed to count rules: %v", err)
	}
	if count > 0 {
		log.Printf("Tenant already has %d rules, skipping", count)
		return
	}

	rules := []seedRule{
		{name: "Temporada 20%", kind: pricing.KindPercentage, value: "20", scopeType: "catalog", minQty: 1},
		{name: "Descuento bebidas", badge: sql.NullString{String: "Oferta", Valid: true}, kind: pricing.KindFixedAmount, value: "5", scopeType: "category", scopeID: sql.NullString{String: "bebidas", Valid: true}, minQty: 1},
		{name: "Lleva 3 paga 2", kind: pricing.KindBuyXGetY, value: "0", buy: sql.NullInt32{Int32: 3, Valid: true}, get: sql.NullInt32{Int32: 1, Valid: true}, scopeType: "tag", scopeID: sql.NullString{String: "promo", Valid: true}, minQty: 3},
	}
	for _, r := range rules {
		_, err := db.Exec(`
			INSERT INTO discount_rules
				(tenant_id, name, badge_text, kind, value, buy_quantity, get_quantity, scope_type, scope_id, min_quantity)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, tenantID, r.name, r.badge, string(r.kind), decimal.RequireFromString(r.value).String(), r.buy, r.get, r.scopeType, r.scopeID, r.minQty)
		if err != nil {
			log.Printf("Failed to insert rule %s: %v", r.name, err)
			continue
		}
		log.Printf("Rule %s (%s)", r.name, r.kind)
	}
}

func seedSettings(db *sql.DB, tenantID string) {
	cfg := pricing.DefaultConfig()
	cfg.Currency = "MXN"
	cfg.EnableTax = true
	cfg.TaxType = pricing.TaxPercentage
	cfg.TaxValue = decimal.NewFromInt(16)

	for key, value := range settings.ToPairs(cfg) {
		_, err := db.Exec(`
			INSERT INTO tenant_settings (tenant_id, key, value) VALUES ($1, $2, $3)
			ON CONFLICT (tenant_id, key) DO NOTHING
		`, tenantID, key, value)
		if err != nil {
			log.Printf("Failed to insert setting %s: %v", key, err)
		}
	}
	log.Println("Pricing settings seeded")
}

func adminToken(tenantID string, ttl time.Duration) string {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Println("JWT_SECRET is not set, skipping admin token")
		return ""
	}
	v, err := auth.NewVerifier(auth.VerifierConfig{Secret: secret, Issuer: os.Getenv("JWT_ISSUER")})
	if err != nil {
		log.Printf("Failed to build verifier: %v", err)
		return ""
	}
	token, err := v.Issue(auth.Claims{Subject: "seed-admin", TenantID: tenantID, Roles: []string{auth.RoleAdmin}}, ttl)
	if err != nil {
		log.Printf("Failed to issue token: %v", err)
		return ""
	}
	return token
}
