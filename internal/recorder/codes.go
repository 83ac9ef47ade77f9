package recorder

import (
	"fmt"
	"math/rand"
)

// CodeGenerator выдаёт кандидатов в коды транзакций; уникальность проверяет хранилище.
type CodeGenerator interface {
	Next() string
}

type randomCodes struct{ prefix string }

// RandomCodes: префикс + 6 случайных цифр (100000–999999).
func RandomCodes(prefix string) CodeGenerator { return randomCodes{prefix: prefix} }

func (g randomCodes) Next() string {
	return fmt.Sprintf("%s%06d", g.prefix, 100000+rand.Intn(900000))
}
