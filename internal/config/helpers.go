package config

func stringPtr(s string) *string { return &s }
func intPtr(n int) *int          { return &n }
func boolPtr(b bool) *bool       { return &b }

// String returns a pointer to s for building overrides.
func String(s string) *string { return stringPtr(s) }

// Int returns a pointer to n for building overrides.
func Int(n int) *int { return intPtr(n) }

// Bool returns a pointer to b for building overrides.
func Bool(b bool) *bool { return boolPtr(b) }
