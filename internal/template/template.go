package template

import (
	"context"
	"errors"
	"fmt"

	"github.com/Lumerin-protocol/actus-originator/internal/engine"
	"github.com/Lumerin-protocol/actus-originator/internal/interfaces"
	"github.com/Lumerin-protocol/actus-originator/internal/lib"
	"github.com/Lumerin-protocol/actus-originator/internal/repositories/contracts"
	"github.com/Lumerin-protocol/actus-originator/internal/signer"
	"github.com/Lumerin-protocol/actus-originator/internal/terms"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrRegistrationFailed = errors.New("template registration failed")
	ErrNotFound           = errors.New("template not found")
)

type Ledger interface {
	RegisterTemplate(ctx context.Context, from signer.Identity, ext *terms.ExtendedTerms, schedule []engine.ScheduleEvent) (*contracts.Submission, error)
	GetTemplate(ctx context.Context, templateID common.Hash) (*terms.ExtendedTerms, []engine.ScheduleEvent, error)
	contracts.Finalizer
}

type Template struct {
	ID       common.Hash
	Terms    *terms.ExtendedTerms
	Schedule []engine.ScheduleEvent
}

// ContentID identifies a template by its terms and schedule, the registry assigns the same id
func ContentID(ext *terms.ExtendedTerms, schedule []engine.ScheduleEvent) (common.Hash, error) {
	termsHash, err := ext.Terms.Hash()
	if err != nil {
		return common.Hash{}, err
	}
	data := make([]byte, 0, 32*len(schedule))
	for _, ev := range schedule {
		word := ev.Encode()
		data = append(data, word[:]...)
	}
	return crypto.Keccak256Hash(termsHash.Bytes(), crypto.Keccak256(data)), nil
}

type Registry struct {
	ledger Ledger
	engine engine.Engine
	log    interfaces.ILogger
}

func NewRegistry(ledger Ledger, eng engine.Engine, log interfaces.ILogger) *Registry {
	return &Registry{
		ledger: ledger,
		engine: eng,
		log:    log,
	}
}

// Create registers the template and returns it once the registration is finalized.
// A timeout leaves the outcome unknown, the returned error carries the pending submission.
func (r *Registry) Create(ctx context.Context, creator signer.Identity, ext *terms.ExtendedTerms) (*Template, error) {
	if ext == nil {
		return nil, lib.WrapError(terms.ErrMalformedTerms, fmt.Errorf("extended terms are missing"))
	}

	schedule, err := r.engine.ComputeSchedule(ctx, ext.Terms)
	if err != nil {
		return nil, lib.WrapError(ErrRegistrationFailed, fmt.Errorf("can't compute schedule: %w", err))
	}

	id, err := ContentID(ext, schedule)
	if err != nil {
		return nil, lib.WrapError(ErrRegistrationFailed, err)
	}

	r.log.Infof("registering template %s with %d scheduled events", id.Hex(), len(schedule))
	sub, err := r.ledger.RegisterTemplate(ctx, creator, ext, schedule)
	if err != nil {
		if errors.Is(err, contracts.ErrNotSubmitted) {
			return nil, err
		}
		return nil, lib.WrapError(ErrRegistrationFailed, err)
	}
	r.log.Infof("template registration submitted, pending: %s", sub)

	_, err = r.ledger.WaitFinalized(ctx, sub)
	if err != nil {
		if errors.Is(err, lib.ErrTimeout) {
			r.log.Warnf("template registration outcome unknown: %s", err)
			return nil, err
		}
		r.log.Errorf("template registration rejected: %s", err)
		return nil, lib.WrapError(ErrRegistrationFailed, err)
	}

	tpl, err := r.Load(ctx, id)
	if err != nil {
		return nil, lib.WrapError(ErrRegistrationFailed, err)
	}
	r.log.Infof("template %s registered", id.Hex())
	return tpl, nil
}

// Load reads a registered template and checks it against its id
func (r *Registry) Load(ctx context.Context, templateID common.Hash) (*Template, error) {
	ext, schedule, err := r.ledger.GetTemplate(ctx, templateID)
	if err != nil {
		if errors.Is(err, contracts.ErrNotFound) {
			return nil, lib.WrapError(ErrNotFound, err)
		}
		return nil, err
	}

	id, err := ContentID(ext, schedule)
	if err != nil {
		return nil, err
	}
	if id != templateID {
		return nil, fmt.Errorf("template %s content hashes to %s", templateID.Hex(), id.Hex())
	}

	return &Template{ID: templateID, Terms: ext, Schedule: schedule}, nil
}
