package am

import "github.com/teranos/modx/errors"

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	// Batch size: 0 = default, negative = invalid
	if c.Modify.BatchSize < 0 {
		return errors.Newf("modify.batch_size must be >= 0, got %d", c.Modify.BatchSize)
	}

	switch c.Database.KeyStyle {
	case "", "sequence", "uuid":
	default:
		return errors.WithHint(
			errors.Newf("database.key_style %q is not supported", c.Database.KeyStyle),
			"use sequence or uuid")
	}

	// Throttle: 0 = unlimited, negative = invalid
	if c.Storage.MaxTransactionsPerSecond < 0 {
		return errors.Newf("storage.max_transactions_per_second must be >= 0, got %f", c.Storage.MaxTransactionsPerSecond)
	}
	if c.Storage.Burst < 0 {
		return errors.Newf("storage.burst must be >= 0, got %d", c.Storage.Burst)
	}

	if c.WriteFilter.Enabled {
		if len(c.WriteFilter.Values) > 0 && c.WriteFilter.Attribute == "" {
			return errors.New("write_filter.values requires write_filter.attribute")
		}
		for _, p := range c.WriteFilter.KeyPrefixes {
			if p == "" {
				return errors.New("write_filter.key_prefixes must not contain an empty prefix")
			}
		}
	}

	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return errors.New("metrics.namespace cannot be empty when metrics are enabled")
	}

	return nil
}
