package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"futures-signal/internal/domain"
)

// PostgresContractsRepository 期货合约Repository实现
type PostgresContractsRepository struct {
	db *sql.DB
}

// NewPostgresContractsRepository 创建合约Repository
func NewPostgresContractsRepository(db *sql.DB) *PostgresContractsRepository {
	return &PostgresContractsRepository{db: db}
}

var _ ContractsRepository = (*PostgresContractsRepository)(nil)

// GetByCode 按合约代码查询
func (r *PostgresContractsRepository) GetByCode(ctx context.Context, contractCode string) (*domain.Contract, error) {
	query := `
		SELECT contract_id, contract_code, contract_name, exchange_code,
		       contract_multiplier, listed_date, expiry_date, is_active, created_at
		FROM futures_contracts
		WHERE contract_code = $1
	`
	var contract domain.Contract
	err := r.db.QueryRowContext(ctx, query, contractCode).Scan(
		&contract.ContractID,
		&contract.ContractCode,
		&contract.ContractName,
		&contract.ExchangeCode,
		&contract.ContractMultiplier,
		&contract.ListedDate,
		&contract.ExpiryDate,
		&contract.IsActive,
		&contract.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

// UpsertContract 插入或更新合约信息
func (r *PostgresContractsRepository) UpsertContract(ctx context.Context, contract *domain.Contract) error {
	query := `
		INSERT INTO futures_contracts (
			contract_code, contract_name, exchange_code,
			contract_multiplier, listed_date, expiry_date, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (contract_code) DO UPDATE SET
			contract_name = EXCLUDED.contract_name,
			exchange_code = EXCLUDED.exchange_code,
			contract_multiplier = EXCLUDED.contract_multiplier,
			listed_date = EXCLUDED.listed_date,
			expiry_date = EXCLUDED.expiry_date,
			is_active = EXCLUDED.is_active
	`
	_, err := r.db.ExecContext(ctx, query,
		contract.ContractCode,
		contract.ContractName,
		contract.ExchangeCode,
		contract.ContractMultiplier,
		contract.ListedDate,
		contract.ExpiryDate,
		contract.IsActive,
	)
	return err
}

// ListExpiredCodes 列出 asOf 之前已到期且仍标记为活跃的合约代码
func (r *PostgresContractsRepository) ListExpiredCodes(ctx context.Context, asOf time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT contract_code FROM futures_contracts
		 WHERE is_active = TRUE AND expiry_date IS NOT NULL AND expiry_date < $1`,
		asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// DeactivateByCodes 批量标记合约为下市，返回受影响行数
func (r *PostgresContractsRepository) DeactivateByCodes(ctx context.Context, contractCodes []string) (int64, error) {
	if len(contractCodes) == 0 {
		return 0, nil
	}
	result, err := r.db.ExecContext(ctx,
		`UPDATE futures_contracts SET is_active = FALSE
		 WHERE contract_code = ANY($1) AND is_active = TRUE`,
		pq.Array(contractCodes))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
