package host

// AssetProvider serves embedded assets to clients of the host.
// Production hosts back this with a real bundle; the test harness uses
// the noop provider.
type AssetProvider interface {
	// Get returns the asset stored under key, or false if absent.
	Get(key string) ([]byte, bool)
}

// noopAssets is an AssetProvider that holds nothing.
type noopAssets struct{}

func (noopAssets) Get(string) ([]byte, bool) {
	return nil, false
}

// NoopAssets returns an empty AssetProvider implementation.
func NoopAssets() AssetProvider {
	return noopAssets{}
}
