package domain

type RootStats struct {
	NodeID      uint   `json:"node_id"`
	Name        string `json:"name"`
	Total       int    `json:"total"`
	OK          int    `json:"ok"`
	NotOK       int    `json:"not_ok"`
	Pending     int    `json:"pending"`
	Complete    bool   `json:"complete"`
	Loaded      bool   `json:"loaded"`
	VehicleName string `json:"vehicle_name,omitempty"`
}

type EventStats struct {
	EventID    uint        `json:"event_id"`
	TotalItems int         `json:"total_items"`
	OK         int         `json:"ok"`
	NotOK      int         `json:"not_ok"`
	Pending    int         `json:"pending"`
	Percent    int         `json:"percent"`
	Roots      []RootStats `json:"roots"`
}

func ComputeStats(tree EventTree) EventStats {
	stats := EventStats{
		EventID:    tree.EventID,
		TotalItems: tree.Progress.TotalItems,
		OK:         tree.Progress.OK,
		NotOK:      tree.Progress.NotOK,
		Pending:    tree.Progress.Pending,
		Percent:    tree.Progress.Percent,
		Roots:      make([]RootStats, 0, len(tree.Roots)),
	}

	for _, root := range tree.Roots {
		stats.Roots = append(stats.Roots, RootStats{
			NodeID:      root.ID,
			Name:        root.Name,
			Total:       root.TotalItems,
			OK:          root.OKCount,
			NotOK:       root.NotOKCount,
			Pending:     root.PendingCount,
			Complete:    root.Complete,
			Loaded:      root.Loaded,
			VehicleName: root.VehicleName,
		})
	}

	return stats
}
