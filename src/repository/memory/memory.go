package memory

import (
	"github.com/username/banksync/src/repository"
)

var (
	_ repository.AccountRepository     = (*AccountRepository)(nil)
	_ repository.TransactionRepository = (*TransactionRepository)(nil)
)
