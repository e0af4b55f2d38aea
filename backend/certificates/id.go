package certificates

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewCertificateID человекочитаемый идентификатор вида CERT-<ms>-<9 символов>
func NewCertificateID(now time.Time) string {
	return "CERT-" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + randomSuffix(9)
}

// NewFilename случайное имя файла в хранилище
func NewFilename(extension string) string {
	return uuid.NewString() + extension
}

func randomSuffix(n int) string {
	out := make([]byte, n)
	limit := big.NewInt(int64(len(base36)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			// crypto/rand не падает на поддерживаемых платформах
			panic(err)
		}
		out[i] = base36[idx.Int64()]
	}
	return string(out)
}
