package maintenance

import (
	"context"
	"log"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
)

// RatingRecomputer пересчитывает сохраненные агрегаты оценок
type RatingRecomputer interface {
	RecomputeAllRatings(ctx context.Context) (int, error)
}

// CertificateBackfiller выдает идентификаторы сертификатам без него
type CertificateBackfiller interface {
	BackfillIDs(ctx context.Context) (int, error)
}

type Scheduler struct {
	cron         *cron.Cron
	ratings      RatingRecomputer
	certificates CertificateBackfiller
	logger       *log.Logger
	timeout      time.Duration
}

func NewScheduler(ratings RatingRecomputer, certs CertificateBackfiller, logger *log.Logger) *Scheduler {
	return &Scheduler{
		cron:         cron.New(cron.WithLogger(cron.PrintfLogger(logger))),
		ratings:      ratings,
		certificates: certs,
		logger:       logger,
		timeout:      10 * time.Minute,
	}
}

// Start регистрирует задачи по расписанию (стандартный cron или @daily/@every) и запускает их
func (s *Scheduler) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return errors.Wrapf(err, "invalid maintenance schedule %q", schedule)
	}
	s.cron.Start()
	s.logger.Printf("maintenance scheduled: %s", schedule)
	return nil
}

// Stop ждет завершения текущего прогона
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.RunOnce(ctx); err != nil {
		s.logger.Printf("maintenance failed: %v", err)
	}
}

// RunOnce выполняет все задачи сразу
func (s *Scheduler) RunOnce(ctx context.Context) error {
	backfilled, err := s.certificates.BackfillIDs(ctx)
	if err != nil {
		return errors.Wrap(err, "backfilling certificate ids")
	}

	courses, err := s.ratings.RecomputeAllRatings(ctx)
	if err != nil {
		return errors.Wrap(err, "recomputing ratings")
	}

	s.logger.Printf("maintenance done: %d certificate ids backfilled, %d course ratings recomputed", backfilled, courses)
	return nil
}
