package main

import (
	"flag"
	"fmt"
	"log"

	"invitation-platform/internal/config"
	"invitation-platform/internal/database"
	"invitation-platform/internal/models"
	"invitation-platform/internal/repositories"
)

func main() {
	var (
		email = flag.String("email", "admin@example.com", "Admin email address")
		name  = flag.String("name", "Platform Admin", "Admin display name")
		phone = flag.String("phone", "+966500000000", "Admin phone number")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	db, err := database.NewConnection(database.Config{
		URL:      cfg.Database.URL,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	userRepo := repositories.NewUserRepository(db.DB)

	if existing, err := userRepo.GetByEmail(*email); err == nil {
		if existing.IsAdmin() {
			fmt.Printf("Admin user already exists with ID: %d\n", existing.ID)
			return
		}
		if _, err := db.DB.Exec("UPDATE users SET role = 'admin', updated_at = NOW() WHERE id = $1", existing.ID); err != nil {
			log.Fatal("Failed to promote user to admin:", err)
		}
		fmt.Printf("User %s promoted to admin\n", *email)
		return
	}

	admin := &models.User{
		Email: *email,
		Name:  *name,
		Phone: *phone,
		Role:  models.RoleAdmin,
	}
	if err := admin.Validate(); err != nil {
		log.Fatal("Invalid admin data:", err)
	}

	created, err := userRepo.Create(admin)
	if err != nil {
		log.Fatal("Failed to create admin user:", err)
	}

	fmt.Printf("Admin user created with ID: %d\n", created.ID)
	fmt.Printf("Email: %s\n", created.Email)
}
