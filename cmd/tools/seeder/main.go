package main

import (
	"database/sql"
	"log"
	"os"

	"github.com/alexedwards/argon2id"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedUsers(db)
	seedProducts(db)
	seedNewsletter(db)

	log.Println("Seeding completed successfully!")
}

func seedUsers(db *sql.DB) {
	users := []struct {
		Name  string
		Email string
		Role  string
	}{
		{"Admin", "admin@bazuuyu.vn", "admin"},
		{"Nguyen Van An", "an.nguyen@example.com", "customer"},
		{"Tran Thi Bich", "bich.tran@example.com", "customer"},
		{"Le Minh Chau", "chau.le@example.com", "customer"},
		{"Pham Quoc Dat", "dat.pham@example.com", "customer"},
	}

	hash, err := argon2id.CreateHash("password123", argon2id.DefaultParams)
	if err != nil {
		log.Fatalf("Failed to hash seed password: %v", err)
	}

	log.Println("Seeding Users...")
	for _, u := range users {
		_, err := db.Exec(`
			INSERT INTO users (name, email, password_hash, roles)
			VALUES ($1, $2, $3, ARRAY[$4])
			ON CONFLICT (email) DO NOTHING;
		`, u.Name, u.Email, hash, u.Role)
		if err != nil {
			log.Printf("Failed to seed user %s: %v", u.Email, err)
		}
	}
}

func seedProducts(db *sql.DB) {
	products := []struct {
		Name     string
		Slug     string
		Category string
		Price    int64
		Stock    int
		Image    string
	}{
		{"Áo Thun Cotton Basic", "ao-thun-cotton-basic", "fashion", 150000, 500, "https://images.unsplash.com/photo-1583743814966-8936f5b7be1a?w=800"},
		{"Quần Jeans Slim Fit", "quan-jeans-slim-fit", "fashion", 450000, 200, "https://images.unsplash.com/photo-1542272604-787c3835535d?w=800"},
		{"Giày Sneaker Trắng", "giay-sneaker-trang", "fashion", 890000, 150, "https://images.unsplash.com/photo-1542291026-7eec264c27ff?w=800"},
		{"Tai Nghe Bluetooth", "tai-nghe-bluetooth", "electronics", 1200000, 80, "https://images.unsplash.com/photo-1618366712010-f4ae9c647dcb?w=800"},
		{"Bàn Phím Cơ", "ban-phim-co", "electronics", 1500000, 60, "https://images.unsplash.com/photo-1587829741301-dc798b83add3?w=800"},
		{"Bình Giữ Nhiệt 500ml", "binh-giu-nhiet-500ml", "home", 250000, 300, "https://images.unsplash.com/photo-1602143407151-7111542de6e8?w=800"},
		{"Nến Thơm Lavender", "nen-thom-lavender", "home", 180000, 120, "https://images.unsplash.com/photo-1602874801006-e26c4c5b5e8a?w=800"},
		{"Balo Laptop 15 inch", "balo-laptop-15-inch", "accessories", 550000, 90, "https://images.unsplash.com/photo-1553062407-98eeb64c6a62?w=800"},
	}

	log.Println("Seeding Products...")
	for _, p := range products {
		_, err := db.Exec(`
			INSERT INTO products (name, slug, category, price, stock, images, published)
			VALUES ($1, $2, $3, $4, $5, ARRAY[$6], true)
			ON CONFLICT (slug) DO UPDATE SET
				price = EXCLUDED.price,
				stock = EXCLUDED.stock,
				category = EXCLUDED.category;
		`, p.Name, p.Slug, p.Category, p.Price, p.Stock, p.Image)
		if err != nil {
			log.Printf("Failed to seed product %s: %v", p.Name, err)
		}
	}
}

func seedNewsletter(db *sql.DB) {
	log.Println("Seeding Newsletter Subscribers...")
	_, err := db.Exec(`
		INSERT INTO newsletter_subscribers (email, status, token, confirmed_at)
		VALUES ('an.nguyen@example.com', 'CONFIRMED', 'seed-token-an', now())
		ON CONFLICT (email) DO NOTHING;
	`)
	if err != nil {
		log.Printf("Failed to seed subscriber: %v", err)
	}
}
