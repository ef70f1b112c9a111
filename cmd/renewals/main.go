// Command renewals prints the policies coming up for renewal within a
// window, so reminders can be driven from cron.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"chronyx/models"
)

func mustDBFromEnv() *gorm.DB {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN not set in env")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	return gdb
}

func main() {
	_ = godotenv.Load()
	username := flag.String("username", "", "limit to one user's policies (default: all users)")
	days := flag.Int("days", 30, "renewal window in days from today")
	list := flag.Bool("list", false, "print each matching policy")
	flag.Parse()

	gdb := mustDBFromEnv()

	now := time.Now().UTC()
	from := now.Format("2006-01-02")
	to := now.AddDate(0, 0, *days).Format("2006-01-02")

	q := gdb.Model(&models.Policy{}).Where("renewal_date <> '' AND renewal_date >= ? AND renewal_date <= ?", from, to)
	if *username != "" {
		var user models.User
		if err := gdb.Where("username = ?", *username).First(&user).Error; err != nil {
			log.Fatalf("user not found: %v", err)
		}
		q = q.Where("user_id = ?", user.ID)
	}

	var cnt int64
	if err := q.Count(&cnt).Error; err != nil {
		log.Fatalf("query failed: %v", err)
	}
	fmt.Printf("Policies renewing between %s and %s: %d\n", from, to, cnt)

	if *list {
		var rows []models.Policy
		if err := q.Order("renewal_date").Find(&rows).Error; err != nil {
			log.Fatalf("fetch rows failed: %v", err)
		}
		for _, p := range rows {
			fmt.Printf("%d|%s|%s|%s|%s\n", p.ID, p.RenewalDate, p.PolicyNumber, p.Provider, p.PolicyName)
		}
	}
}
