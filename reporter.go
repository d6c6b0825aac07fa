package metrics

// Reporter is implemented by everything that externalizes a Registry.
// Several reporters may be attached to the same registry; the name tells them
// apart in logs. Uniqueness is not enforced.
type Reporter interface {
	UniqueReporterName() string
}
