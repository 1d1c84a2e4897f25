package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"luckyroll/internal/address"
	"luckyroll/internal/metrics"
	"luckyroll/internal/models"
	"luckyroll/internal/oracle"
	"luckyroll/internal/shuffle"
	"luckyroll/internal/storage"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/logger"
)

// RoundParams configures a round window and its oracle.
type RoundParams struct {
	Oracle    string
	TimeStart time.Time
	TimeEnd   time.Time
}

// RoundService runs a single lottery round. Operations are applied one at a
// time; each either commits all of its writes or none of them.
type RoundService struct {
	mu        sync.RWMutex
	store     *storage.Store
	validator address.Validator
	outbox    oracle.Outbox
	metrics   *metrics.RoundMetrics
	order     AttendeeOrder
}

type Option func(*RoundService)

func WithMetrics(m *metrics.RoundMetrics) Option {
	return func(s *RoundService) { s.metrics = m }
}

// WithAttendeeOrder overrides the order attendees pick prizes in at roll time.
func WithAttendeeOrder(order AttendeeOrder) Option {
	return func(s *RoundService) { s.order = order }
}

// NewRoundService creates a RoundService over store.
func NewRoundService(store *storage.Store, validator address.Validator, outbox oracle.Outbox, opts ...Option) *RoundService {
	s := &RoundService{
		store:     store,
		validator: validator,
		outbox:    outbox,
		order:     AscendingAddress,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RoundService) exec(action string, fn func() (*models.Response, error)) (*models.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resp, err := fn()
	s.metrics.ObserveOperation(action, err)
	if err != nil {
		logger.Warningf("%s rejected: %v", action, err)
	}
	return resp, err
}

// Instantiate makes the caller the owner and opens the first round.
func (s *RoundService) Instantiate(call models.Call, params RoundParams) (*models.Response, error) {
	return s.exec("instantiate", func() (*models.Response, error) {
		_, err := s.store.Owner()
		if err == nil {
			return nil, ErrAlreadyInstantiated
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		cfg, err := s.roundConfigs(params)
		if err != nil {
			return nil, err
		}

		tx := s.store.Begin()
		tx.SaveOwner(call.Sender)
		s.stageFreshRound(tx, cfg)
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		logger.Infof("Instantiated round owned by %s with oracle %s", call.Sender.Hex(), cfg.Oracle.Hex())
		return models.NewResponse("instantiate").AddAttribute("owner", call.Sender.Hex()), nil
	})
}

// Reset discards everything about the current round and starts a new one.
func (s *RoundService) Reset(call models.Call, params RoundParams) (*models.Response, error) {
	return s.exec("reset", func() (*models.Response, error) {
		if err := s.ensureOwner(call.Sender); err != nil {
			return nil, err
		}
		cfg, err := s.roundConfigs(params)
		if err != nil {
			return nil, err
		}

		tx := s.store.Begin()
		tx.ClearWhitelist()
		tx.ClearAttendees()
		s.stageFreshRound(tx, cfg)
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		s.metrics.SetAttendees(0)
		s.metrics.SetPrizes(0)
		logger.Infof("Reset round: window %s - %s", cfg.TimeStart.Format(time.RFC3339), cfg.TimeEnd.Format(time.RFC3339))
		return models.NewResponse("reset").AddAttribute("owner", call.Sender.Hex()), nil
	})
}

func (s *RoundService) roundConfigs(params RoundParams) (models.Configs, error) {
	oracleAddr, err := s.validator.Validate(params.Oracle)
	if err != nil {
		return models.Configs{}, fmt.Errorf("%w: %v", ErrInvalidProxyAddress, err)
	}
	if params.TimeStart.IsZero() || params.TimeEnd.IsZero() {
		return models.Configs{}, ErrInvalidTime
	}
	if params.TimeEnd.Before(params.TimeStart) {
		return models.Configs{}, ErrInvalidWindow
	}
	return models.Configs{
		Oracle:    oracleAddr,
		TimeStart: params.TimeStart.UTC(),
		TimeEnd:   params.TimeEnd.UTC(),
	}, nil
}

func (s *RoundService) stageFreshRound(tx *storage.Tx, cfg models.Configs) {
	tx.SaveConfigs(cfg)
	tx.SavePrizes(models.Prizes{Shuffled: false, Prizes: []string{}})
	tx.SaveDistribution(nil)
	tx.SaveRoundEnded(false)
}

// SetPrizes replaces the prize pool and asks the oracle for the randomness
// that shuffles it.
func (s *RoundService) SetPrizes(ctx context.Context, call models.Call, prizes []string) (*models.Response, error) {
	return s.exec("set prizes", func() (*models.Response, error) {
		if err := s.ensureOwner(call.Sender); err != nil {
			return nil, err
		}
		if err := s.ensureNotEnded(); err != nil {
			return nil, err
		}
		cfg, err := s.configs()
		if err != nil {
			return nil, err
		}

		tx := s.store.Begin()
		tx.SavePrizes(models.Prizes{Shuffled: false, Prizes: append([]string{}, prizes...)})
		req, err := s.emit(ctx, cfg, oracle.PrizeShuffle(), call)
		if err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		s.metrics.SetPrizes(len(prizes))
		logger.Infof("Set %d prizes, awaiting shuffle request %s", len(prizes), req.ID)
		resp := models.NewResponse("set prizes").AddAttribute("owner", call.Sender.Hex())
		resp.Requests = append(resp.Requests, req.ID)
		return resp, nil
	})
}

// SetWhitelist rebuilds the whitelist. Either every address is valid and
// the whitelist is replaced, or nothing changes. Addresses that already hold
// a lucky number stay marked as attended.
func (s *RoundService) SetWhitelist(call models.Call, attendees []string) (*models.Response, error) {
	return s.exec("set whitelist", func() (*models.Response, error) {
		if err := s.ensureOwner(call.Sender); err != nil {
			return nil, err
		}
		if err := s.ensureNotEnded(); err != nil {
			return nil, err
		}
		addrs, err := address.ValidateAll(s.validator, attendees)
		if err != nil {
			return nil, err
		}

		tx := s.store.Begin()
		tx.ClearWhitelist()
		for _, addr := range addrs {
			_, attended, err := s.store.Attendee(addr)
			if err != nil {
				return nil, err
			}
			tx.SaveWhitelistStatus(addr, models.Status{Attended: attended})
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		logger.Infof("Whitelisted %d addresses", len(addrs))
		return models.NewResponse("set whitelist"), nil
	})
}

// Register gives a whitelisted caller a place in the round and requests the
// randomness for their lucky number.
func (s *RoundService) Register(ctx context.Context, call models.Call) (*models.Response, error) {
	return s.exec("lucky number", func() (*models.Response, error) {
		if err := s.ensureNotEnded(); err != nil {
			return nil, err
		}
		status, ok, err := s.store.WhitelistStatus(call.Sender)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrDenied
		}
		if status.Attended {
			return nil, ErrOnlyOnce
		}
		cfg, err := s.configs()
		if err != nil {
			return nil, err
		}
		if call.Time.Before(cfg.TimeStart) {
			return nil, ErrNotStarted
		}
		if call.Time.After(cfg.TimeEnd) {
			return nil, ErrHasEnded
		}

		tx := s.store.Begin()
		tx.SaveAttendee(models.Attendee{Address: call.Sender})
		tx.SaveWhitelistStatus(call.Sender, models.Status{Attended: true})
		req, err := s.emit(ctx, cfg, oracle.Registration(call.Sender), call)
		if err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		s.metrics.AddAttendee()
		logger.Infof("Registered %s, lucky number requested (%s)", call.Sender.Hex(), req.ID)
		resp := models.NewResponse("lucky number")
		resp.Requests = append(resp.Requests, req.ID)
		return resp, nil
	})
}

// Roll distributes the prizes and closes the round.
func (s *RoundService) Roll(call models.Call) (*models.Response, error) {
	return s.exec("roll", func() (*models.Response, error) {
		if err := s.ensureOwner(call.Sender); err != nil {
			return nil, err
		}
		if err := s.ensureNotEnded(); err != nil {
			return nil, err
		}
		cfg, err := s.configs()
		if err != nil {
			return nil, err
		}
		if !call.Time.After(cfg.TimeEnd) {
			return nil, ErrNotEnded
		}
		prizes, err := s.store.Prizes()
		if err != nil {
			return nil, err
		}
		if !prizes.Shuffled {
			return nil, ErrNotShuffled
		}
		attendees, err := s.store.Attendees()
		if err != nil {
			return nil, err
		}
		dist, err := Distribute(prizes.Prizes, attendees, s.order)
		if err != nil {
			return nil, err
		}

		tx := s.store.Begin()
		tx.SaveDistribution(dist)
		tx.SaveRoundEnded(true)
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		logger.Infof("Rolled %d prizes among %d attendees", len(prizes.Prizes), len(attendees))
		return models.NewResponse("roll"), nil
	})
}

// ReceiveRandomness handles an oracle callback. Callbacks whose job id names
// nothing pending are accepted and ignored.
func (s *RoundService) ReceiveRandomness(call models.Call, cb oracle.Callback) (*models.Response, error) {
	return s.exec("receive", func() (*models.Response, error) {
		cfg, err := s.configs()
		if err != nil {
			return nil, err
		}
		if call.Sender != cfg.Oracle {
			return nil, ErrUnauthorizedReceive
		}
		if err := s.ensureNotEnded(); err != nil {
			return nil, err
		}
		seed, err := cb.Seed()
		if err != nil {
			return nil, err
		}

		job := oracle.ParseJob(cb.JobID, s.validator)
		switch job.Kind {
		case oracle.JobPrizeShuffle:
			return s.shufflePrizes(seed)
		case oracle.JobRegistration:
			return s.assignLuckyNumber(job.Participant, seed)
		default:
			s.metrics.ObserveCallback(job.Kind.String(), "ignored")
			logger.Warningf("Ignoring randomness for unknown job %q", cb.JobID)
			return &models.Response{}, nil
		}
	})
}

func (s *RoundService) shufflePrizes(seed [32]byte) (*models.Response, error) {
	prizes, err := s.store.Prizes()
	if err != nil {
		return nil, err
	}
	tx := s.store.Begin()
	tx.SavePrizes(models.Prizes{Shuffled: true, Prizes: shuffle.Shuffle(seed, prizes.Prizes)})
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	s.metrics.ObserveCallback(oracle.JobPrizeShuffle.String(), "shuffled")
	logger.Infof("Shuffled %d prizes", len(prizes.Prizes))
	return models.NewResponse("set prizes"), nil
}

func (s *RoundService) assignLuckyNumber(participant common.Address, seed [32]byte) (*models.Response, error) {
	attendee, ok, err := s.store.Attendee(participant)
	if err != nil {
		return nil, err
	}
	if !ok || !attendee.Pending() {
		s.metrics.ObserveCallback(oracle.JobRegistration.String(), "ignored")
		logger.Warningf("Ignoring randomness for %s: no pending registration", participant.Hex())
		return &models.Response{}, nil
	}

	lucky := DeriveLuckyNumber(participant, seed)
	attendee.LuckyNumber = &lucky
	tx := s.store.Begin()
	tx.SaveAttendee(attendee)
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	s.metrics.ObserveCallback(oracle.JobRegistration.String(), "assigned")
	return models.NewResponse("get lucky number"), nil
}

// emit sends a randomness request for job to the configured oracle, carrying
// the caller's funds along.
func (s *RoundService) emit(ctx context.Context, cfg models.Configs, job oracle.Job, call models.Call) (oracle.Request, error) {
	req, err := oracle.NewRequest(cfg.Oracle, job, call.Funds, call.Time)
	if err != nil {
		return oracle.Request{}, err
	}
	if err := s.outbox.Emit(ctx, req); err != nil {
		return oracle.Request{}, fmt.Errorf("emit randomness request: %w", err)
	}
	s.metrics.ObserveRequest(job.Kind.String())
	return req, nil
}

func (s *RoundService) ensureOwner(sender common.Address) error {
	owner, err := s.store.Owner()
	if err != nil {
		return notInstantiated(err)
	}
	if owner != sender {
		return ErrUnauthorized
	}
	return nil
}

func (s *RoundService) ensureNotEnded() error {
	ended, err := s.store.RoundEnded()
	if err != nil {
		return notInstantiated(err)
	}
	if ended {
		return ErrRoundEnd
	}
	return nil
}

func (s *RoundService) configs() (models.Configs, error) {
	cfg, err := s.store.Configs()
	if err != nil {
		return models.Configs{}, notInstantiated(err)
	}
	return cfg, nil
}

func notInstantiated(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotInstantiated
	}
	return err
}

// Prizes returns the current prize pool in its current order.
func (s *RoundService) Prizes() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prizes, err := s.store.Prizes()
	if err != nil {
		return nil, notInstantiated(err)
	}
	return prizes.Prizes, nil
}

// Distribution returns the prizes handed out by the last roll.
func (s *RoundService) Distribution() ([]models.DistributePrize, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dist, err := s.store.Distribution()
	if err != nil {
		return nil, notInstantiated(err)
	}
	return dist, nil
}

// Attendees returns every registered attendee in ascending address order.
func (s *RoundService) Attendees() ([]models.Attendee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Attendees()
}

func (s *RoundService) Whitelist() ([]models.WhitelistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Whitelist()
}

func (s *RoundService) Configs() (models.Configs, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.configs()
}

func (s *RoundService) Owner() (common.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owner, err := s.store.Owner()
	return owner, notInstantiated(err)
}

// State derives the lifecycle stage from the stored flags.
func (s *RoundService) State() (models.RoundState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := s.store.Owner(); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.StateUninitialized, nil
		}
		return "", err
	}
	ended, err := s.store.RoundEnded()
	if err != nil {
		return "", err
	}
	if ended {
		return models.StateClosed, nil
	}
	prizes, err := s.store.Prizes()
	if err != nil {
		return "", err
	}
	switch {
	case prizes.Shuffled:
		return models.StateShuffled, nil
	case len(prizes.Prizes) > 0:
		return models.StateOpen, nil
	default:
		return models.StateConfiguring, nil
	}
}
