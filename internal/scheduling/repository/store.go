package repository

import (
	"slotbook/pkg/config"
	"slotbook/pkg/db"
	mongodb "slotbook/pkg/db/mongo"
	"slotbook/pkg/db/sqldb"

	"gorm.io/gorm"
)

// Store groups the repositories of one backend with the transaction manager
// that makes their calls atomic.
type Store struct {
	Windows      WindowRepository
	Reservations ReservationRepository
	Locks        WindowLockRepository
	Tx           db.TransactionManager
}

func NewStore(cfg *config.Config) *Store {
	if cfg.StoreDriver == config.StoreDriverMongo {
		return NewMongoStore(cfg)
	}
	return NewSQLStore(cfg.Client.SQL)
}

func NewMongoStore(cfg *config.Config) *Store {
	return &Store{
		Windows:      NewMongoWindowRepository(cfg),
		Reservations: NewMongoReservationRepository(cfg),
		Locks:        NewMongoWindowLockRepository(cfg),
		Tx:           mongodb.NewTransactionManager(cfg.Client.Mongo),
	}
}

func NewSQLStore(gdb *gorm.DB) *Store {
	return &Store{
		Windows:      NewSQLWindowRepository(gdb),
		Reservations: NewSQLReservationRepository(gdb),
		Locks:        NewSQLWindowLockRepository(gdb),
		Tx:           sqldb.NewTransactionManager(gdb),
	}
}
