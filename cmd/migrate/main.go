package main

import (
	"log"
	"os"

	"deonai-be/internal/model"
	"deonai-be/pkg/database"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

// ownerCheck matches rows belonging to the subject set by the unit of work.
const ownerCheck = `user_id = current_setting('request.jwt.claim.sub', true)`

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}
	rlsRole := os.Getenv("DB_RLS_ROLE")
	if rlsRole == "" {
		rlsRole = "authenticated"
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(dsn, false)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Starting GORM Migration...")

	role := pgx.Identifier{rlsRole}.Sanitize()

	// 3. Pre-Migration: Extensions and the request role
	log.Println("Step 1: Setting up Extensions and Roles...")
	execAll(db, []string{`CREATE EXTENSION IF NOT EXISTS pgcrypto;`}, "setup")

	var roleExists bool
	if err := db.Raw(`SELECT EXISTS (SELECT 1 FROM pg_roles WHERE rolname = ?)`, rlsRole).Scan(&roleExists).Error; err != nil {
		log.Printf("Warn: Failed to look up role %s: %v", rlsRole, err)
	} else if !roleExists {
		execAll(db, []string{`CREATE ROLE ` + role + ` NOLOGIN;`}, "setup")
	}

	// 4. AutoMigrate
	log.Println("Step 2: Running AutoMigrate for conversations and messages...")
	if err := db.AutoMigrate(&model.Conversation{}, &model.Message{}); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// 5. Post-Migration: row-level security
	log.Println("Step 3: Enabling row-level security...")
	postMigrationSQL := []string{
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation_order ON messages (conversation_id, created_at, seq);`,

		`ALTER TABLE conversations ENABLE ROW LEVEL SECURITY;`,
		`ALTER TABLE messages ENABLE ROW LEVEL SECURITY;`,

		`GRANT SELECT, INSERT, UPDATE, DELETE ON conversations, messages TO ` + role + `;`,
		`GRANT USAGE ON ALL SEQUENCES IN SCHEMA public TO ` + role + `;`,
		`GRANT ` + role + ` TO CURRENT_USER;`,

		`DROP POLICY IF EXISTS conversations_owner ON conversations;`,
		`CREATE POLICY conversations_owner ON conversations
		 USING (` + ownerCheck + `)
		 WITH CHECK (` + ownerCheck + `);`,

		`DROP POLICY IF EXISTS messages_owner ON messages;`,
		`CREATE POLICY messages_owner ON messages
		 USING (EXISTS (SELECT 1 FROM conversations c WHERE c.id = messages.conversation_id AND c.` + ownerCheck + `))
		 WITH CHECK (EXISTS (SELECT 1 FROM conversations c WHERE c.id = messages.conversation_id AND c.` + ownerCheck + `));`,
	}
	execAll(db, postMigrationSQL, "post-migration")

	log.Println("Success: Database migration completed.")
}

func execAll(db *gorm.DB, statements []string, stage string) {
	for _, sql := range statements {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute %s SQL: %v", stage, err)
		}
	}
}
