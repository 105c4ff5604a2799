package ui

import "sync/atomic"

type Stats struct {
	StoriesSeen    atomic.Int64
	StoriesCreated atomic.Int64
	StoriesUpdated atomic.Int64
	ChaptersAdded  atomic.Int64
	ImagesFound    atomic.Int64
	Failed         atomic.Int64
	Invalid        atomic.Int64
}
