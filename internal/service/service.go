// Package service реализует оркестрацию кредитной оценки.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/bnpl-system/internal/cache"
	"github.com/mmeshcher/bnpl-system/internal/emi"
	"github.com/mmeshcher/bnpl-system/internal/fraud"
	"github.com/mmeshcher/bnpl-system/internal/model"
	"github.com/mmeshcher/bnpl-system/internal/narrative"
	"github.com/mmeshcher/bnpl-system/internal/oracle"
	"github.com/mmeshcher/bnpl-system/internal/repository"
	"github.com/mmeshcher/bnpl-system/internal/scoring"
)

// Версионированные пространства ключей кэша: смена схемы оценки
// инвалидирует старые записи вместо молчаливого переиспользования.
const (
	assessmentKeyPrefix = "credit:v1:score:"
	oracleKeyPrefix     = "credit:v1:oracle:"
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	Ping(ctx context.Context) error
	GetUserByID(ctx context.Context, userID string) (*model.User, error)
	ListUsers(ctx context.Context) ([]repository.UserWithCount, error)
	CreateUser(ctx context.Context, u *model.User) error
	GetTransactionsByUser(ctx context.Context, userID string, filter repository.TransactionFilter) ([]model.Transaction, error)
	AddTransaction(ctx context.Context, t *model.Transaction) error
}

// ScoringOracle описывает контракт внешнего AI-оракула оценки.
type ScoringOracle interface {
	Score(ctx context.Context, request oracle.Request) (*oracle.Assessment, error)
}

// OfferProvider описывает контракт внешнего провайдера планов рассрочки.
type OfferProvider interface {
	FetchOffers(ctx context.Context, amount, creditLimit float64) ([]model.EMIOffer, error)
}

// Options содержит параметры оркестратора.
type Options struct {
	AssessmentTTL     time.Duration
	OracleResultTTL   time.Duration
	FraudVelocityDays int
}

// Service содержит бизнес-логику кредитной оценки.
type Service struct {
	repo      Repository
	store     cache.Store
	engine    *scoring.Engine
	gate      *fraud.Gate
	generator *emi.Generator
	oracle    ScoringOracle
	provider  OfferProvider
	opts      Options
	logger    *zap.Logger
	nowFn     func() time.Time
}

// NewService создаёт оркестратор кредитной оценки. Оракул и провайдер
// необязательны: при nil используется детерминированный путь.
func NewService(
	repo Repository,
	store cache.Store,
	engine *scoring.Engine,
	gate *fraud.Gate,
	generator *emi.Generator,
	scoringOracle ScoringOracle,
	offerProvider OfferProvider,
	opts Options,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:      repo,
		store:     store,
		engine:    engine,
		gate:      gate,
		generator: generator,
		oracle:    scoringOracle,
		provider:  offerProvider,
		opts:      opts,
		logger:    logger,
		nowFn:     time.Now,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Ping проверяет доступность хранилища.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// Assess выполняет полную кредитную оценку для пары (пользователь, сумма).
// Повторный идентичный запрос в пределах TTL возвращает кэшированный
// результат без побочных эффектов. Единственная ошибка, видимая
// вызывающему коду, — repository.ErrUserNotFound.
func (s *Service) Assess(ctx context.Context, userID string, requestedAmount float64) (*model.CreditAssessment, error) {
	cacheKey := assessmentKey(userID, requestedAmount)

	if data, ok := s.store.Get(ctx, cacheKey); ok {
		var cached model.CreditAssessment
		if err := json.Unmarshal(data, &cached); err == nil {
			s.logger.Info("assessment cache hit", zap.String("userID", userID))
			return &cached, nil
		}
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	transactions, err := s.repo.GetTransactionsByUser(ctx, userID, repository.TransactionFilter{})
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}

	now := s.nowFn()
	fraudResult := s.gate.CheckUser(ctx, s.store, user, now)

	decision := s.obtainDecision(ctx, user, transactions, fraudResult, requestedAmount, now)

	// Жёсткое бизнес-правило, которое оракул переопределить не может:
	// сумма сверх лимита не одобряется.
	if requestedAmount > decision.creditLimit {
		decision.approved = false
	}

	offers := []model.EMIOffer{}
	if decision.approved {
		offers = s.obtainOffers(ctx, requestedAmount, decision.creditLimit)
	}

	assessment := &model.CreditAssessment{
		UserID:              user.ID,
		UserName:            user.Name,
		RiskSegment:         user.RiskSegment,
		Approved:            decision.approved,
		CreditScore:         decision.score,
		CreditLimit:         decision.creditLimit,
		ScoreBreakdown:      decision.breakdown,
		EMIOffers:           offers,
		Narrative:           decision.narrative,
		FraudFlagged:        fraudResult.Flagged,
		RequestedAmount:     requestedAmount,
		AssessmentTimestamp: now,
	}

	if data, err := json.Marshal(assessment); err == nil {
		s.store.Set(ctx, cacheKey, data, s.opts.AssessmentTTL)
	}

	return assessment, nil
}

// decision — промежуточный итог этапа SCORING.
type decision struct {
	approved    bool
	score       float64
	creditLimit float64
	breakdown   model.ScoreBreakdown
	narrative   string
}

// obtainDecision получает оценку от оракула, а при его отказе или
// отключении — от детерминированного движка. Отказ оракула штатен:
// система обязана выдать решение в любом случае.
func (s *Service) obtainDecision(ctx context.Context, user *model.User, transactions []model.Transaction, fraudResult fraud.Result, requestedAmount float64, now time.Time) decision {
	if s.oracle != nil {
		if d, ok := s.oracleDecision(ctx, user, transactions, fraudResult, now); ok {
			return d
		}
	}
	return s.deterministicDecision(user, transactions, fraudResult, requestedAmount, now)
}

func (s *Service) oracleDecision(ctx context.Context, user *model.User, transactions []model.Transaction, fraudResult fraud.Result, now time.Time) (decision, bool) {
	request := oracle.Request{
		UserName:       user.Name,
		Transactions:   transactions,
		FraudFlagged:   fraudResult.Flagged,
		AccountAgeDays: user.AccountAgeDays(now),
	}

	assessment, ok := s.cachedOracleResult(ctx, request)
	if !ok {
		result, err := s.oracle.Score(ctx, request)
		if err != nil {
			s.logger.Warn("oracle unavailable, falling back to deterministic scoring",
				zap.String("userID", user.ID), zap.Error(err))
			return decision{}, false
		}
		assessment = result
		s.storeOracleResult(ctx, request, assessment)
	}

	d := decision{
		approved:    assessment.Approved,
		score:       assessment.CreditScore,
		creditLimit: assessment.CreditLimit,
		breakdown:   assessment.ScoreBreakdown,
		narrative:   assessment.Narrative,
	}

	// Антифрод-инвариант действует и для оракула: при сработавшем флаге
	// балл ограничивается, одобрение снимается.
	if fraudResult.Flagged {
		d.score = s.engine.ApplyFraudCap(d.score, true)
		d.approved = false
		d.creditLimit = 0
	}

	return d, true
}

func (s *Service) deterministicDecision(user *model.User, transactions []model.Transaction, fraudResult fraud.Result, requestedAmount float64, now time.Time) decision {
	score, breakdown := s.engine.ComputeScore(user, transactions, now)
	approved := s.engine.IsApproved(score)
	creditLimit := s.engine.ComputeCreditLimit(score, requestedAmount)

	stats := scoring.ComputeStats(transactions)
	text := narrative.Generate(narrative.Facts{
		UserName:         user.Name,
		Approved:         approved,
		Score:            score,
		Breakdown:        breakdown,
		CreditLimit:      creditLimit,
		FraudFlagged:     fraudResult.Flagged,
		FraudDayLimit:    s.opts.FraudVelocityDays,
		TransactionCount: stats.TransactionCount,
		TotalGMV:         stats.TotalGMV,
		CouponRate:       stats.CouponRate,
		ReturnRate:       stats.ReturnRate,
		CategoryCount:    stats.CategoryCount,
		AccountAgeDays:   user.AccountAgeDays(now),
	})

	return decision{
		approved:    approved,
		score:       score,
		creditLimit: creditLimit,
		breakdown:   breakdown,
		narrative:   text,
	}
}

// obtainOffers запрашивает планы рассрочки у внешнего провайдера,
// при любом его отказе считает аннуитет локально.
func (s *Service) obtainOffers(ctx context.Context, amount, creditLimit float64) []model.EMIOffer {
	if s.provider != nil {
		offers, err := s.provider.FetchOffers(ctx, amount, creditLimit)
		if err == nil {
			return offers
		}
		s.logger.Warn("installment provider unavailable, using local calculation", zap.Error(err))
	}
	return s.generator.GenerateOffers(amount, creditLimit)
}

// ScoreSummary — краткая сводка оценки без генерации предложений.
type ScoreSummary struct {
	UserID      string               `json:"user_id"`
	CreditScore float64              `json:"credit_score"`
	Approved    bool                 `json:"approved"`
	Breakdown   model.ScoreBreakdown `json:"score_breakdown"`
}

// Score возвращает детерминированную сводку оценки пользователя.
func (s *Service) Score(ctx context.Context, userID string) (*ScoreSummary, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	transactions, err := s.repo.GetTransactionsByUser(ctx, userID, repository.TransactionFilter{})
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}

	score, breakdown := s.engine.ComputeScore(user, transactions, s.nowFn())

	return &ScoreSummary{
		UserID:      user.ID,
		CreditScore: score,
		Approved:    s.engine.IsApproved(score),
		Breakdown:   breakdown,
	}, nil
}

// ListUsers возвращает всех пользователей с количеством транзакций.
func (s *Service) ListUsers(ctx context.Context) ([]repository.UserWithCount, error) {
	return s.repo.ListUsers(ctx)
}

// GetUser возвращает пользователя по идентификатору.
func (s *Service) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

// CreateUser регистрирует нового пользователя и возвращает его идентификатор.
func (s *Service) CreateUser(ctx context.Context, name, email, riskSegment string) (*model.User, error) {
	u := &model.User{
		ID:               uuid.NewString(),
		Name:             name,
		Email:            email,
		RegistrationDate: s.nowFn(),
		RiskSegment:      riskSegment,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// GetTransactions возвращает транзакции пользователя с учётом фильтров.
func (s *Service) GetTransactions(ctx context.Context, userID string, filter repository.TransactionFilter) ([]model.Transaction, error) {
	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.GetTransactionsByUser(ctx, userID, filter)
}

// AddTransaction сохраняет новую транзакцию и возвращает её идентификатор.
func (s *Service) AddTransaction(ctx context.Context, t model.Transaction) (*model.Transaction, error) {
	t.ID = uuid.NewString()
	if t.Timestamp.IsZero() {
		t.Timestamp = s.nowFn()
	}
	if err := s.repo.AddTransaction(ctx, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// assessmentKey строит ключ кэша итогового результата по отпечатку
// пары (пользователь, запрошенная сумма).
func assessmentKey(userID string, requestedAmount float64) string {
	sum := sha256.Sum256([]byte(userID + "|" + strconv.FormatFloat(requestedAmount, 'f', 2, 64)))
	return assessmentKeyPrefix + hex.EncodeToString(sum[:])
}

// oracleKey строит ключ кэша сырого ответа оракула по отпечатку
// содержимого его входных данных.
func oracleKey(request oracle.Request) string {
	h := sha256.New()
	h.Write([]byte(request.UserName))
	h.Write([]byte{'|'})
	if data, err := json.Marshal(request.Transactions); err == nil {
		h.Write(data)
	}
	h.Write([]byte{'|'})
	h.Write([]byte(strconv.FormatBool(request.FraudFlagged)))
	h.Write([]byte{'|'})
	h.Write([]byte(strconv.Itoa(request.AccountAgeDays)))
	return oracleKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

func (s *Service) cachedOracleResult(ctx context.Context, request oracle.Request) (*oracle.Assessment, bool) {
	data, ok := s.store.Get(ctx, oracleKey(request))
	if !ok {
		return nil, false
	}

	var cached oracle.Assessment
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, false
	}
	if err := cached.Validate(); err != nil {
		return nil, false
	}

	return &cached, true
}

func (s *Service) storeOracleResult(ctx context.Context, request oracle.Request, assessment *oracle.Assessment) {
	if data, err := json.Marshal(assessment); err == nil {
		s.store.Set(ctx, oracleKey(request), data, s.opts.OracleResultTTL)
	}
}
