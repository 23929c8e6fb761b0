package pkg

const (
	// INF_WEIGHT is the tentative arrival of a vertex that has not been reached yet.
	// arrivals are unix seconds, so any real instant is far below it.
	INF_WEIGHT float64 = 1e15

	DEFAULT_TRANSFER_SECONDS = 120.0
)

// enum of transfer_mode
type TransferMode uint8

const (
	// TRANSFERS_PER_STOP fetches the foot transfers of a stop when the stop is discovered.
	TRANSFERS_PER_STOP TransferMode = iota
	// TRANSFERS_PRELOADED adds every transfer of the vertex set before the search starts.
	TRANSFERS_PRELOADED
)

func GetTransferMode(mode string) TransferMode {
	switch mode {
	case "preloaded":
		return TRANSFERS_PRELOADED
	default:
		return TRANSFERS_PER_STOP
	}
}

func (m TransferMode) String() string {
	switch m {
	case TRANSFERS_PRELOADED:
		return "preloaded"
	default:
		return "per_stop"
	}
}

// enum of frontier implementations
type FrontierKind uint8

const (
	SORTED_LIST_FRONTIER FrontierKind = iota
	HEAP_FRONTIER
)

func GetFrontierKind(kind string) FrontierKind {
	switch kind {
	case "heap":
		return HEAP_FRONTIER
	default:
		return SORTED_LIST_FRONTIER
	}
}

func (k FrontierKind) String() string {
	switch k {
	case HEAP_FRONTIER:
		return "heap"
	default:
		return "list"
	}
}
