package cache

import "errors"

var ErrCacheMiss = errors.New("price not found in cache")
