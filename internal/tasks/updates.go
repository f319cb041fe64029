package tasks

import "fmt"

// ProgressUpdate represents a progress event during playlist generation.
//
// Used to send real-time updates to the CLI for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	SearchTracks Phase = iota
	SelectTracks
	FetchUser
	CreatePlaylist
	AddTracks
	Rollback
	Done
)

func (p Phase) String() string {
	switch p {
	case SearchTracks:
		return "search_tracks"
	case SelectTracks:
		return "select_tracks"
	case FetchUser:
		return "fetch_user"
	case CreatePlaylist:
		return "create_playlist"
	case AddTracks:
		return "add_tracks"
	case Rollback:
		return "rollback"
	case Done:
		return "done"
	default:
		return ""
	}
}

func searchTracksUpdate(step, total int, artist string, found int, err error) ProgressUpdate {
	if err != nil {
		return ProgressUpdate{
			Phase:   SearchTracks,
			Step:    step,
			Total:   total,
			Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, artist, err),
		}
	}
	return ProgressUpdate{
		Phase:   SearchTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s (%d tracks)", step, total, artist, found),
	}
}

func selectTracksUpdate(selected, pool int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SelectTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Selected %d of %d tracks", selected, pool),
	}
}

func fetchUserUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: FetchUser, Step: 1, Total: 1, Message: "Fetching Spotify profile..."}
}

func createPlaylistUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Creating playlist %q...", name),
	}
}

func addTracksUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Adding %d tracks...", count),
	}
}

func rollbackUpdate(playlistID string, err error) ProgressUpdate {
	msg := fmt.Sprintf("Removed incomplete playlist %s", playlistID)
	if err != nil {
		msg = fmt.Sprintf("Could not remove incomplete playlist %s: %v", playlistID, err)
	}
	return ProgressUpdate{Phase: Rollback, Step: 1, Total: 1, Message: msg}
}

func doneUpdate(result any, url string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Done,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("✓ Playlist ready: %s", url),
		Data:    result,
	}
}
