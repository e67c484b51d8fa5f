package setting

import (
	"context"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/innocell/innocell/core"
)

type (
	Repository interface {
		AllSettings(ctx context.Context) (Settings, error)
		UpsertSettings(ctx context.Context, values Settings, at time.Time) error
	}

	// Cache stores the whole settings map. Get returns ok=false on a miss.
	Cache interface {
		Get(ctx context.Context) (Settings, bool, error)
		Set(ctx context.Context, values Settings) error
		Invalidate(ctx context.Context) error
	}

	Service interface {
		All(ctx context.Context) (Settings, error)
		Get(ctx context.Context, key string) (string, error)
		Update(ctx context.Context, values map[string]string) (Settings, error)
		// IsMaintenance returns whether maintenance mode is on and its message.
		IsMaintenance(ctx context.Context) (bool, string)
		RegistrationOpen(ctx context.Context) bool
		SetMaintenance(ctx context.Context, on bool, message string) error
	}

	service struct {
		repo     Repository
		cache    Cache
		validate *validator.Validate
		logger   core.Logger
	}
)

var (
	_ Service = (*service)(nil)

	ErrNotFound = core.NewNotFoundError("setting")
)

// NewService returns the settings service; cache may be nil.
func NewService(repo Repository, cache Cache, validate *validator.Validate, logger core.Logger) Service {
	return &service{repo: repo, cache: cache, validate: validate, logger: logger}
}

func (svc *service) All(ctx context.Context) (Settings, error) {
	if svc.cache != nil {
		vals, ok, err := svc.cache.Get(ctx)
		if err != nil {
			svc.logger.Warn("reading settings cache: " + err.Error())
		} else if ok {
			return vals.withDefaults(), nil
		}
	}

	vals, err := svc.repo.AllSettings(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading settings")
	}
	vals = vals.withDefaults()
	if svc.cache != nil {
		if err = svc.cache.Set(ctx, vals); err != nil {
			svc.logger.Warn("writing settings cache: " + err.Error())
		}
	}
	return vals, nil
}

func (svc *service) Get(ctx context.Context, key string) (string, error) {
	if !IsKnown(key) {
		return "", ErrNotFound
	}
	vals, err := svc.All(ctx)
	if err != nil {
		return "", err
	}
	return vals[key], nil
}

// clean validates values and normalizes booleans; unknown keys are rejected.
func (svc *service) clean(values map[string]string) (Settings, error) {
	var fieldErrs []core.FieldError
	out := make(Settings, len(values))
	for key, val := range values {
		def, ok := known[key]
		if !ok {
			fieldErrs = append(fieldErrs, core.FieldError{Field: key, Error: "unknown setting"})
			continue
		}
		val = core.CleanString(val)
		switch {
		case def.required && val == "":
			fieldErrs = append(fieldErrs, core.FieldError{Field: key, Error: "this field is required"})
			continue
		case def.maxLen > 0 && utf8.RuneCountInString(val) > def.maxLen:
			fieldErrs = append(fieldErrs, core.FieldError{Field: key, Error: "value too long"})
			continue
		}
		switch def.kind {
		case kindBool:
			b, err := strconv.ParseBool(val)
			if err != nil {
				fieldErrs = append(fieldErrs, core.FieldError{Field: key, Error: "must be a boolean"})
				continue
			}
			val = strconv.FormatBool(b)
		case kindEmail:
			if err := svc.validate.Var(val, "omitempty,email"); err != nil {
				fieldErrs = append(fieldErrs, core.FieldError{Field: key, Error: "must be a valid email address"})
				continue
			}
		}
		out[key] = val
	}
	if len(fieldErrs) > 0 {
		return nil, core.NewValidationError(errors.New("invalid settings"), fieldErrs...)
	}
	return out, nil
}

func (svc *service) Update(ctx context.Context, values map[string]string) (Settings, error) {
	vals, err := svc.clean(values)
	if err != nil {
		return nil, err
	}
	if len(vals) > 0 {
		if err = svc.repo.UpsertSettings(ctx, vals, core.Now()); err != nil {
			return nil, errors.Wrap(err, "saving settings")
		}
		if svc.cache != nil {
			if err = svc.cache.Invalidate(ctx); err != nil {
				svc.logger.Warn("invalidating settings cache: " + err.Error())
			}
		}
	}
	return svc.All(ctx)
}

func (svc *service) IsMaintenance(ctx context.Context) (bool, string) {
	vals, err := svc.All(ctx)
	if err != nil {
		svc.logger.Error("checking maintenance mode: "+err.Error(), err)
		return false, ""
	}
	return vals.MaintenanceMode(), vals.MaintenanceMessage()
}

func (svc *service) RegistrationOpen(ctx context.Context) bool {
	vals, err := svc.All(ctx)
	if err != nil {
		svc.logger.Error("checking registration: "+err.Error(), err)
		return false
	}
	return vals.RegistrationOpen()
}

func (svc *service) SetMaintenance(ctx context.Context, on bool, message string) error {
	values := map[string]string{KeyMaintenanceMode: strconv.FormatBool(on)}
	if message = core.CleanString(message); message != "" {
		values[KeyMaintenanceMessage] = message
	}
	_, err := svc.Update(ctx, values)
	return err
}
