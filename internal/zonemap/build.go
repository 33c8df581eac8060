package zonemap

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Build loads zone with the first loader that succeeds, in the order EQG
// v1-3, EQG v4, S3D, and compiles it. When none succeeds the returned error
// wraps ErrNoZoneData and every loader error.
func (m *Map) Build(zone string) error {
	m.zone = zone
	var errs error

	if l := m.loaders.EQG; l != nil {
		z, err := l.Load(zone)
		if err == nil {
			m.log.Debug("loaded zone", zap.String("zone", zone), zap.String("format", "eqg"))
			m.CompileEQG(z)
			return nil
		}
		m.log.Debug("not an EQG zone", zap.String("zone", zone), zap.Error(err))
		errs = multierr.Append(errs, fmt.Errorf("eqg: %w", err))
	}

	if l := m.loaders.EQG4; l != nil {
		t, err := l.Load(zone)
		if err == nil {
			m.log.Debug("loaded zone", zap.String("zone", zone), zap.String("format", "eqg4"))
			m.CompileEQGv4(t)
			return nil
		}
		m.log.Debug("not an EQG v4 zone", zap.String("zone", zone), zap.Error(err))
		errs = multierr.Append(errs, fmt.Errorf("eqg4: %w", err))
	}

	if l := m.loaders.S3D; l != nil {
		z, err := l.Load(zone)
		if err == nil {
			m.log.Debug("loaded zone", zap.String("zone", zone), zap.String("format", "s3d"))
			m.CompileS3D(z)
			return nil
		}
		m.log.Debug("not an S3D zone", zap.String("zone", zone), zap.Error(err))
		errs = multierr.Append(errs, fmt.Errorf("s3d: %w", err))
	}

	m.reset()
	if errs == nil {
		errs = errors.New("no loaders configured")
	}
	return fmt.Errorf("%w: %s: %w", ErrNoZoneData, zone, errs)
}
