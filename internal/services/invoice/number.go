package invoice

import (
	"context"
	"fmt"
	"time"
)

// nextNumber формирует очередной номер счёта вида INV-YYYYMMDD-NNN,
// где NNN — число счетов пользователя за сегодня плюс один. Алгоритм
// не защищён от гонок: два конкурентных запроса могут получить один
// номер, и тогда конфликт разрешает ограничение уникальности при
// записи, а не повторная генерация.
func (s *Service) nextNumber(ctx context.Context, userID int64) (string, error) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	count, err := s.repo.CountInvoicesByIssuedDate(ctx, userID, today)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("INV-%s-%03d", today.Format("20060102"), count+1), nil
}
