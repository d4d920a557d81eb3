// Package directory loads and caches the clinic's dentist directory. The
// backend exposes dentists under several endpoint variants, so the list is
// probed once and cached rather than re-probed on every slot search.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/novadent/booking-gateway/internal/clinicapi"
	"github.com/novadent/booking-gateway/internal/scheduling"
	"github.com/novadent/booking-gateway/pkg/logging"
)

const cacheKey = "directory:doctors"

// ErrUnknownDoctor is returned when an identifier matches no directory entry.
var ErrUnknownDoctor = errors.New("doctor not found in directory")

// Directory resolves doctor identities against the clinic backend.
type Directory struct {
	client *clinicapi.Client
	redis  *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// New creates a directory. redisClient may be nil, in which case every List
// probes the backend.
func New(client *clinicapi.Client, redisClient *redis.Client, ttl time.Duration, logger *logging.Logger) *Directory {
	if logger == nil {
		logger = logging.Default()
	}
	return &Directory{client: client, redis: redisClient, ttl: ttl, logger: logger}
}

// List returns the canonical dentist list, from cache when fresh.
func (d *Directory) List(ctx context.Context, token string) ([]scheduling.Doctor, error) {
	if cached, ok := d.fromCache(ctx); ok {
		return cached, nil
	}

	raw, err := d.client.ListDoctors(ctx, token)
	if err != nil {
		return nil, err
	}

	doctors := make([]scheduling.Doctor, 0, len(raw))
	for _, r := range raw {
		doc := r.Normalize()
		if doc.Key() == "" {
			continue
		}
		doctors = append(doctors, doc)
	}

	d.toCache(ctx, doctors)
	return doctors, nil
}

// Resolve finds a doctor by ID, dentist code, or display name.
func (d *Directory) Resolve(ctx context.Context, token, idOrCode string) (scheduling.Doctor, error) {
	idOrCode = strings.TrimSpace(idOrCode)
	if idOrCode == "" {
		return scheduling.Doctor{}, ErrUnknownDoctor
	}

	doctors, err := d.List(ctx, token)
	if err != nil {
		return scheduling.Doctor{}, err
	}
	for _, doc := range doctors {
		if doc.ID == idOrCode || doc.Code == idOrCode || strings.EqualFold(doc.Name, idOrCode) {
			return doc, nil
		}
	}
	return scheduling.Doctor{}, ErrUnknownDoctor
}

func (d *Directory) fromCache(ctx context.Context) ([]scheduling.Doctor, bool) {
	if d.redis == nil {
		return nil, false
	}
	data, err := d.redis.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			d.logger.Warn("directory cache read failed", "error", err)
		}
		return nil, false
	}
	var doctors []scheduling.Doctor
	if err := json.Unmarshal(data, &doctors); err != nil {
		return nil, false
	}
	return doctors, true
}

func (d *Directory) toCache(ctx context.Context, doctors []scheduling.Doctor) {
	if d.redis == nil || len(doctors) == 0 {
		return
	}
	data, err := json.Marshal(doctors)
	if err != nil {
		return
	}
	if err := d.redis.Set(ctx, cacheKey, data, d.ttl).Err(); err != nil {
		d.logger.Warn("directory cache write failed", "error", err)
	}
}
