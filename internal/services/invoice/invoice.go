// Package invoice реализует сборку счёта: идемпотентность, проверку
// владения, подстановку данных извлечения, сверку сумм, нумерацию,
// сохранение и необязательные генерацию PDF и платёжную ссылку.
package invoice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/invoiq/invoiq/internal/lib/errs"
	"github.com/invoiq/invoiq/internal/lib/money"
	"github.com/invoiq/invoiq/internal/lib/sl"
	"github.com/invoiq/invoiq/internal/metrics"
	"github.com/invoiq/invoiq/internal/models"
	"github.com/invoiq/invoiq/internal/paymentprovider"
	"github.com/invoiq/invoiq/internal/pdf"
)

// Repository определяет методы хранилища, нужные сборке счёта.
type Repository interface {
	CreateInvoiceWithItems(ctx context.Context, inv models.Invoice, items []models.InvoiceItem) (int64, error)
	GetInvoiceWithItems(ctx context.Context, userID, invoiceID int64) (*models.InvoiceDetails, error)
	ListInvoices(ctx context.Context, userID int64, filter models.InvoiceFilter) ([]*models.Invoice, error)
	UpdateInvoiceWithItems(ctx context.Context, inv models.Invoice, items *[]models.InvoiceItem) error
	DeleteInvoice(ctx context.Context, userID, invoiceID int64) error
	CountInvoicesByIssuedDate(ctx context.Context, userID int64, issued time.Time) (int, error)
	ExistsInvoiceNumber(ctx context.Context, userID int64, number string) (bool, error)
	SetInvoicePDFURL(ctx context.Context, invoiceID int64, pdfURL string) error
	SetInvoicePaymentLink(ctx context.Context, invoiceID int64, link string) error
	GetClient(ctx context.Context, userID, clientID int64) (*models.Client, error)
	GetExtraction(ctx context.Context, extractionID int64) (*models.Extraction, error)
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	GetIdempotencyKey(ctx context.Context, userID int64, key string) (*models.IdempotencyKey, error)
	SaveIdempotencyKey(ctx context.Context, userID int64, key, resourceType string, resourceID int64) error
	CreatePayment(ctx context.Context, payment models.Payment) (int64, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// FileStore сохраняет сгенерированные файлы и возвращает публичный адрес.
type FileStore interface {
	SaveBytes(filename string, content []byte) (string, error)
}

// ProviderRegistry отдаёт платёжного провайдера по имени.
type ProviderRegistry interface {
	Get(name string) (paymentprovider.Provider, error)
}

// Service реализует бизнес-логику работы со счетами.
type Service struct {
	repo      Repository
	cache     Cache
	files     FileStore
	providers ProviderRegistry
	log       *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, cache Cache, files FileStore, providers ProviderRegistry, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		cache:     cache,
		files:     files,
		providers: providers,
		log:       log,
	}
}

func cacheKey(userID, invoiceID int64) string {
	return fmt.Sprintf("invoice:%d:%d", userID, invoiceID)
}

func parseDate(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	d, err := time.Parse("2006-01-02", *raw)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", *raw, errs.ErrValidation)
	}
	return &d, nil
}

// Create собирает и сохраняет счёт. Шаги идут строго по порядку, каждый
// является жёсткими воротами: до сохранения никакие частичные данные не
// фиксируются, а PDF и платёжная ссылка после фиксации — необязательные
// обогащения, их сбой счёт не отменяет.
func (s *Service) Create(ctx context.Context, userID int64, req models.DummyInvoice) (*models.InvoiceDetails, error) {
	const op = "services.invoice.Create"

	// Шаг 1: повтор с тем же ключом возвращает прежний счёт без побочных
	// эффектов. Ключ, указывающий на исчезнувший ресурс, является конфликтом.
	var idemKey string
	if req.IdempotencyKey != nil {
		idemKey = strings.TrimSpace(*req.IdempotencyKey)
	}
	if idemKey != "" {
		record, err := s.repo.GetIdempotencyKey(ctx, userID, idemKey)
		switch {
		case err == nil && record.ResourceType == "invoice":
			existing, err := s.repo.GetInvoiceWithItems(ctx, userID, record.ResourceID)
			if err != nil {
				if errors.Is(err, errs.ErrNotFound) {
					return nil, fmt.Errorf("%s: idempotency key points to missing invoice: %w", op, errs.ErrConflict)
				}
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			s.log.Info("idempotent replay, returning existing invoice",
				slog.Int64("invoice_id", record.ResourceID))
			return existing, nil
		case err != nil && !errors.Is(err, errs.ErrNotFound):
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	// Шаг 2: заказчик должен существовать и принадлежать пользователю.
	client, err := s.repo.GetClient(ctx, userID, req.ClientID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// Шаг 3: данные извлечения заполняют только то, что вызывающая
	// сторона не задала сама.
	rawItems := req.Items
	issuedDate, err := parseDate(req.IssuedDate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	dueDate, err := parseDate(req.DueDate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	providerName := ""
	if req.PaymentProvider != nil {
		providerName = *req.PaymentProvider
	}
	currency := ""
	if req.Currency != nil {
		currency = strings.ToUpper(*req.Currency)
	}
	if currency == "" {
		if providerName == paymentprovider.Paystack {
			currency = "NGN"
		} else {
			currency = "USD"
		}
	}

	if req.ExtractionID != nil {
		ext, err := s.repo.GetExtraction(ctx, *req.ExtractionID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if ext.UserID == nil || *ext.UserID != userID {
			return nil, fmt.Errorf("%s: %w", op, errs.ErrNotFound)
		}
		if len(rawItems) == 0 {
			rawItems = buildItemsFromExtraction(ext.Parsed)
		}
		if issuedDate == nil {
			today := time.Now().UTC().Truncate(24 * time.Hour)
			issuedDate = &today
		}
		if dueDate == nil {
			dueDate = parseDueDate(ext.Parsed.Deadlines)
		}
	}

	// Шаг 4: сверка строк и агрегатов.
	items, subtotal, tax, total, err := reconcile(rawItems, req.Subtotal, req.Tax, req.Total)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// Шаг 5: номер из запроса используется как есть, иначе генерируется.
	// Занятый номер — конфликт ещё до записи; гонку двух одинаковых
	// номеров окончательно разрешает ограничение уникальности.
	var number string
	if req.Number != nil && *req.Number != "" {
		number = *req.Number
	} else {
		number, err = s.nextNumber(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	exists, err := s.repo.ExistsInvoiceNumber(ctx, userID, number)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if exists {
		return nil, fmt.Errorf("%s: invoice number %q already exists: %w", op, number, errs.ErrConflict)
	}

	status := models.InvoiceStatusDraft
	if req.Status != nil && *req.Status != "" {
		status = *req.Status
	}

	// Шаг 6: счёт и строки в одной транзакции.
	inv := models.Invoice{
		UserID:     userID,
		ClientID:   client.ID,
		Number:     &number,
		Status:     status,
		IssuedDate: issuedDate,
		DueDate:    dueDate,
		Subtotal:   subtotal,
		Tax:        tax,
		Total:      total,
		Currency:   currency,
	}
	invoiceID, err := s.repo.CreateInvoiceWithItems(ctx, inv, items)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("created new invoice", slog.Int64("id", invoiceID), slog.String("number", number))
	metrics.InvoicesCreated.Inc()

	// Шаги 7 и 8: обогащения после фиксации. Сбой оставляет поле пустым,
	// повторная попытка доступна через обновление счёта.
	if req.GeneratePDF {
		s.generatePDF(ctx, userID, invoiceID, client)
	}
	if req.CreatePaymentLink {
		s.createPaymentLink(ctx, userID, invoiceID, client, providerName, req.CallbackURL)
	}

	// Шаг 9: ключ идемпотентности записывается только после полного
	// успеха; его потеря не делает созданный счёт некорректным.
	if idemKey != "" {
		if err := s.repo.SaveIdempotencyKey(ctx, userID, idemKey, "invoice", invoiceID); err != nil &&
			!errors.Is(err, errs.ErrConflict) {
			s.log.Warn("failed to save idempotency key", sl.Err(err))
		}
	}

	result, err := s.repo.GetInvoiceWithItems(ctx, userID, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Set(cacheKey(userID, invoiceID), result, time.Hour); err != nil {
		s.log.Warn("failed to cache invoice", sl.Err(err))
	}
	return result, nil
}

// generatePDF отрисовывает PDF по зафиксированным данным счёта
// и записывает адрес файла. Любой сбой здесь не фатален.
func (s *Service) generatePDF(ctx context.Context, userID, invoiceID int64, client *models.Client) {
	details, err := s.repo.GetInvoiceWithItems(ctx, userID, invoiceID)
	if err != nil {
		s.log.Warn("pdf generation skipped, failed to load invoice", sl.Err(err))
		return
	}

	content, err := pdf.Render(pdf.Data{
		Number:        details.Number,
		ClientName:    client.Name,
		ClientEmail:   client.Email,
		ClientAddress: client.Address,
		IssuedDate:    details.IssuedDate,
		DueDate:       details.DueDate,
		Items:         details.Items,
		Subtotal:      nullOrZero(details.Subtotal),
		Tax:           nullOrZero(details.Tax),
		Total:         nullOrZero(details.Total),
		Currency:      details.Currency,
	})
	if err != nil {
		s.log.Warn("failed to render invoice pdf", sl.Err(err))
		return
	}

	url, err := s.files.SaveBytes(pdf.Filename(details.Number), content)
	if err != nil {
		s.log.Warn("failed to store invoice pdf", sl.Err(err))
		return
	}
	if err := s.repo.SetInvoicePDFURL(ctx, invoiceID, url); err != nil {
		s.log.Warn("failed to save pdf url", sl.Err(err))
		return
	}
	s.log.Info("invoice pdf generated", slog.Int64("invoice_id", invoiceID), slog.String("url", url))
}

// createPaymentLink создаёт платёжную ссылку у провайдера, фиксирует
// платёж со статусом pending и записывает ссылку на счёте. Ссылка
// платежа выводится из идентификатора счёта детерминированно.
func (s *Service) createPaymentLink(ctx context.Context, userID, invoiceID int64,
	client *models.Client, providerName string, callbackURL *string) {

	details, err := s.repo.GetInvoiceWithItems(ctx, userID, invoiceID)
	if err != nil {
		s.log.Warn("payment link skipped, failed to load invoice", sl.Err(err))
		return
	}
	if !details.Total.Valid || details.Total.Decimal.IsZero() {
		s.log.Warn("payment link skipped, invoice has no total",
			slog.Int64("invoice_id", invoiceID))
		return
	}

	if providerName == "" {
		providerName = paymentprovider.DefaultFor(details.Currency)
	}
	provider, err := s.providers.Get(providerName)
	if err != nil {
		s.log.Warn("payment link skipped, unknown provider", sl.Err(err))
		return
	}

	email := ""
	if client.Email != nil {
		email = *client.Email
	}
	if email == "" {
		if owner, err := s.repo.GetUser(ctx, userID); err == nil {
			email = owner.Email
		}
	}

	description := "Invoice"
	if details.Number != nil {
		description = "Invoice " + *details.Number
	}
	callback := ""
	if callbackURL != nil {
		callback = *callbackURL
	}

	link, err := provider.InitializeLink(ctx, paymentprovider.LinkRequest{
		Reference:   fmt.Sprintf("inv%d", invoiceID),
		Amount:      details.Total.Decimal,
		Currency:    details.Currency,
		Email:       email,
		Description: description,
		CallbackURL: callback,
	})
	if err != nil {
		s.log.Warn("failed to create payment link", sl.Err(err))
		return
	}

	if _, err := s.repo.CreatePayment(ctx, models.Payment{
		InvoiceID:   &invoiceID,
		PaymentType: models.PaymentTypeInvoice,
		Amount:      details.Total.Decimal,
		Currency:    details.Currency,
		Provider:    provider.Name(),
		ProviderRef: link.Reference,
		Status:      models.PaymentStatusPending,
		Description: &description,
	}); err != nil && !errors.Is(err, errs.ErrConflict) {
		s.log.Warn("failed to record pending payment", sl.Err(err))
	}

	if err := s.repo.SetInvoicePaymentLink(ctx, invoiceID, link.URL); err != nil {
		s.log.Warn("failed to save payment link", sl.Err(err))
		return
	}
	s.log.Info("payment link created",
		slog.Int64("invoice_id", invoiceID), slog.String("provider", provider.Name()))
}

func nullOrZero(d decimal.NullDecimal) decimal.Decimal {
	if d.Valid {
		return d.Decimal
	}
	return decimal.Zero
}

// Read возвращает счёт пользователя, используя кеш.
func (s *Service) Read(ctx context.Context, userID, invoiceID int64) (*models.InvoiceDetails, error) {
	const op = "services.invoice.Read"

	var cached models.InvoiceDetails
	found, err := s.cache.Get(cacheKey(userID, invoiceID), &cached)
	if err != nil {
		s.log.Warn("cache lookup failed", sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	details, err := s.repo.GetInvoiceWithItems(ctx, userID, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Set(cacheKey(userID, invoiceID), details, time.Hour); err != nil {
		s.log.Warn("failed to cache invoice", sl.Err(err))
	}
	return details, nil
}

// List возвращает счета пользователя по фильтру. Лимит ограничивается
// сотней записей, некорректные значения пагинации приводятся к разумным.
func (s *Service) List(ctx context.Context, userID int64, filter models.InvoiceFilter) ([]*models.Invoice, error) {
	const op = "services.invoice.List"

	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	result, err := s.repo.ListInvoices(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// Update перезаписывает скалярные поля счёта и, если строки переданы,
// заменяет их целиком. Флаги генерации PDF и платёжной ссылки позволяют
// повторить обогащения, не удавшиеся при создании.
func (s *Service) Update(ctx context.Context, userID, invoiceID int64, req models.DummyInvoiceUpdate) (*models.InvoiceDetails, error) {
	const op = "services.invoice.Update"

	current, err := s.repo.GetInvoiceWithItems(ctx, userID, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	inv := current.Invoice
	if req.Number != nil {
		inv.Number = req.Number
	}
	if req.Status != nil {
		inv.Status = *req.Status
	}
	if req.IssuedDate != nil {
		issued, err := parseDate(req.IssuedDate)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		inv.IssuedDate = issued
	}
	if req.DueDate != nil {
		due, err := parseDate(req.DueDate)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		inv.DueDate = due
	}
	if req.Currency != nil {
		inv.Currency = strings.ToUpper(*req.Currency)
	}
	if req.Subtotal != nil {
		inv.Subtotal = decimal.NewNullDecimal(money.Quantize(*req.Subtotal))
	}
	if req.Tax != nil {
		inv.Tax = decimal.NewNullDecimal(money.Quantize(*req.Tax))
	}
	if req.Total != nil {
		inv.Total = decimal.NewNullDecimal(money.Quantize(*req.Total))
	}

	// Для итоговых сумм действует то же правило сверки, что и при
	// создании: расхождение не фиксируется и не исправляется молча.
	if inv.Subtotal.Valid && inv.Tax.Valid && inv.Total.Valid {
		if !money.Equal(inv.Subtotal.Decimal.Add(inv.Tax.Decimal), inv.Total.Decimal) {
			return nil, fmt.Errorf("%s: subtotal + tax must equal total: %w", op, errs.ErrValidation)
		}
	}

	var items *[]models.InvoiceItem
	if req.Items != nil {
		normalized := normalizeItems(*req.Items)
		items = &normalized
	}

	if err := s.repo.UpdateInvoiceWithItems(ctx, inv, items); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Invalidate(cacheKey(userID, invoiceID)); err != nil {
		s.log.Warn("failed to invalidate invoice cache", sl.Err(err))
	}

	if req.GeneratePDF || req.CreatePaymentLink {
		client, err := s.repo.GetClient(ctx, userID, inv.ClientID)
		if err != nil {
			s.log.Warn("enrichment skipped, failed to load client", sl.Err(err))
		} else {
			if req.GeneratePDF {
				s.generatePDF(ctx, userID, invoiceID, client)
			}
			if req.CreatePaymentLink {
				providerName := ""
				if req.PaymentProvider != nil {
					providerName = *req.PaymentProvider
				}
				s.createPaymentLink(ctx, userID, invoiceID, client, providerName, req.CallbackURL)
			}
		}
	}

	result, err := s.repo.GetInvoiceWithItems(ctx, userID, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// Remove удаляет счёт пользователя вместе со строками.
func (s *Service) Remove(ctx context.Context, userID, invoiceID int64) error {
	const op = "services.invoice.Remove"

	if err := s.repo.DeleteInvoice(ctx, userID, invoiceID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Invalidate(cacheKey(userID, invoiceID)); err != nil {
		s.log.Warn("failed to invalidate invoice cache", sl.Err(err))
	}
	return nil
}
