package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`CREATE EXTENSION IF NOT EXISTS "pgcrypto";`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'engagement_model') THEN
			CREATE TYPE engagement_model AS ENUM ('hourly', 'daily', 'sprint', 'fixed');
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'contract_status') THEN
			CREATE TYPE contract_status AS ENUM ('pending', 'active', 'paused', 'completed', 'disputed');
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'work_unit_status') THEN
			CREATE TYPE work_unit_status AS ENUM ('pending', 'submitted', 'approved', 'rejected');
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'invoice_status') THEN
			CREATE TYPE invoice_status AS ENUM ('pending', 'overdue', 'paid');
		END IF;
	END
	$$;`,
	`CREATE TABLE IF NOT EXISTS contracts (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		buyer_id UUID NOT NULL,
		expert_id UUID NOT NULL,
		title VARCHAR(255) NOT NULL,
		engagement_model engagement_model NOT NULL,
		status contract_status NOT NULL DEFAULT 'pending',
		payment_terms JSONB NOT NULL DEFAULT '{}'::jsonb,
		escrow_balance NUMERIC(18,2) NOT NULL DEFAULT 0 CHECK (escrow_balance >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS work_units (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		contract_id UUID NOT NULL REFERENCES contracts(id),
		work_date DATE,
		log_date DATE,
		status work_unit_status NOT NULL DEFAULT 'pending',
		description TEXT NOT NULL,
		problems_faced TEXT,
		checklist JSONB NOT NULL DEFAULT '[]'::jsonb,
		evidence JSONB NOT NULL DEFAULT '{}'::jsonb,
		sprint_number INT,
		buyer_comment TEXT,
		total_hours NUMERIC(6,2) NOT NULL DEFAULT 0,
		requested_amount NUMERIC(18,2) NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS invoices (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		contract_id UUID NOT NULL REFERENCES contracts(id),
		invoice_type VARCHAR(16),
		source_id UUID REFERENCES work_units(id),
		week_start_date DATE,
		amount NUMERIC(18,2) NOT NULL,
		status invoice_status NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		paid_at TIMESTAMPTZ
	);`,
	`CREATE INDEX IF NOT EXISTS idx_work_units_contract_id ON work_units (contract_id);`,
	`CREATE INDEX IF NOT EXISTS idx_work_units_status ON work_units (status);`,
	`CREATE INDEX IF NOT EXISTS idx_work_units_sprint ON work_units (contract_id, sprint_number) WHERE sprint_number IS NOT NULL;`,
	`CREATE INDEX IF NOT EXISTS idx_invoices_contract_id ON invoices (contract_id);`,
	`CREATE INDEX IF NOT EXISTS idx_invoices_status ON invoices (status);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_invoices_source_id ON invoices (source_id) WHERE source_id IS NOT NULL;`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
