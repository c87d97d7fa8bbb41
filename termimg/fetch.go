package termimg

import "context"

// FetchFunc retrieves raw image bytes from an absolute URL.
type FetchFunc func(ctx context.Context, url string) ([]byte, error)

// Fetch returns the image bytes for url, consulting the disk cache
// before the network: a warm cache serves the bytes without invoking
// fetch at all, and a successful fetch writes the bytes back so later
// processes skip the network too. A nil cache disables persistence.
func Fetch(ctx context.Context, cache *DiskCache, fetch FetchFunc, url string) ([]byte, error) {
	if cache != nil {
		if img, ok := cache.Get(url); ok {
			return img, nil
		}
	}
	img, err := fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		// Best effort: a failed write only costs a refetch next run.
		_ = cache.Put(url, img)
	}
	return img, nil
}
