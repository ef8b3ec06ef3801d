package database

import (
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edupulse/campus-messaging/environments"
	"github.com/edupulse/campus-messaging/pkg/logger"
)

func NewMySQLDB(cfg environments.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&collation=utf8mb4_unicode_ci",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName,
	)

	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Infof("Connected to MySQL database")
	return db, nil
}

func RunMigrations(db *sqlx.DB) error {
	schemas := []string{
		// Population source tables (read-only for this service; owned by the
		// platform CRUD layer, created here so the service runs standalone).
		`CREATE TABLE IF NOT EXISTS recipients (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			phone VARCHAR(20) NOT NULL,
			enrolled_at DATETIME NOT NULL,
			staff_id BIGINT,
			classroom_id VARCHAR(64) NOT NULL DEFAULT '',
			INDEX idx_recipients_classroom (classroom_id),
			INDEX idx_recipients_staff (staff_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS invoices (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			recipient_id BIGINT NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			due_date DATETIME NOT NULL,
			INDEX idx_invoices_recipient (recipient_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS automation_rules (
			id CHAR(36) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			trigger_kind VARCHAR(20) NOT NULL,
			schedule_spec VARCHAR(120) NOT NULL DEFAULT '',
			event_name VARCHAR(64) NOT NULL DEFAULT '',
			keyword VARCHAR(255) NOT NULL DEFAULT '',
			template TEXT NOT NULL,
			audience JSON,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			version BIGINT NOT NULL DEFAULT 1,
			created_by VARCHAR(64) NOT NULL DEFAULT '',
			last_fired_at DATETIME,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			INDEX idx_rules_trigger (trigger_kind),
			INDEX idx_rules_active (active)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS keyword_rules (
			id CHAR(36) PRIMARY KEY,
			keyword VARCHAR(255) NOT NULL,
			response TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			INDEX idx_keyword_rules_active (active)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS scheduled_sends (
			id CHAR(36) PRIMARY KEY,
			rule_id CHAR(36),
			body TEXT NOT NULL,
			scheduled_at DATETIME NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			attempt_count INT NOT NULL DEFAULT 0,
			last_error TEXT,
			version BIGINT NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			INDEX idx_sends_status_scheduled (status, scheduled_at),
			INDEX idx_sends_created_at (created_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS scheduled_send_recipients (
			id CHAR(36) PRIMARY KEY,
			send_id CHAR(36) NOT NULL,
			recipient_id BIGINT NOT NULL,
			name VARCHAR(255) NOT NULL,
			phone VARCHAR(20) NOT NULL,
			outcome VARCHAR(20) NOT NULL DEFAULT 'pending',
			message_id VARCHAR(100),
			last_error TEXT,
			attempted_at DATETIME,
			INDEX idx_send_recipients_send (send_id),
			INDEX idx_send_recipients_outcome (send_id, outcome)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS channel_credentials (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			credential TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,
	}

	for _, schema := range schemas {
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	logger.Infof("Database migrations completed")

	return nil
}

func SeedTestData(db *sqlx.DB) error {
	var count int

	err := db.Get(&count, "SELECT COUNT(*) FROM recipients")
	if err != nil {
		return err
	}

	if count > 0 {
		logger.Infof("Database already has %d recipients, skipping seed", count)
		return nil
	}

	staffAna := int64(1)
	staffBruno := int64(2)

	recipients := []struct {
		name      string
		phone     string
		enrolled  string
		staffID   *int64
		classroom string
	}{
		{"Ana Beatriz Souza", "5511912340001", "2025-02-03", &staffAna, "turma-a"},
		{"Carlos Eduardo Lima", "5511912340002", "2025-03-15", &staffBruno, "turma-a"},
		{"Érica Mendes", "5511912340003", "2025-01-20", &staffAna, "turma-b"},
		{"João Pedro Alves", "5511912340004", "2025-05-02", nil, "turma-b"},
		{"Mariana Castro", "", "2025-04-11", &staffBruno, "turma-c"}, // invalid phone on purpose
	}

	for _, r := range recipients {
		res, err := db.Exec(
			"INSERT INTO recipients (name, phone, enrolled_at, staff_id, classroom_id) VALUES (?, ?, ?, ?, ?)",
			r.name, r.phone, r.enrolled, r.staffID, r.classroom,
		)
		if err != nil {
			return fmt.Errorf("failed to seed recipients: %w", err)
		}

		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get recipient id: %w", err)
		}

		// One pending invoice each; the first recipient gets an overdue one.
		status := "pending"
		due := time.Now().AddDate(0, 1, 0)
		if id == 1 {
			due = time.Now().AddDate(0, 0, -10)
		}
		if _, err := db.Exec(
			"INSERT INTO invoices (recipient_id, status, due_date) VALUES (?, ?, ?)",
			id, status, due,
		); err != nil {
			return fmt.Errorf("failed to seed invoices: %w", err)
		}
	}

	keywordRules := []struct {
		keyword  string
		response string
	}{
		{"#preço", "Tabela de preços: https://example.com/precos"},
		{"preço", "Nossos planos começam em R$ 149/mês. Responda MATRICULA para saber mais."},
		{"horário", "Atendemos de segunda a sexta, das 8h às 18h."},
	}

	for _, kr := range keywordRules {
		if _, err := db.Exec(
			"INSERT INTO keyword_rules (id, keyword, response, active) VALUES (?, ?, ?, TRUE)",
			uuid.NewString(), kr.keyword, kr.response,
		); err != nil {
			return fmt.Errorf("failed to seed keyword rules: %w", err)
		}
	}

	if _, err := db.Exec(
		"INSERT INTO channel_credentials (credential) VALUES (?)",
		"seed-credential-not-for-production",
	); err != nil {
		return fmt.Errorf("failed to seed channel credential: %w", err)
	}

	logger.Infof("Seeded %d recipients and %d keyword rules", len(recipients), len(keywordRules))
	return nil
}
