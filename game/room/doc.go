// Package room coordinates two-player rooms.
//
// Manager is the process-wide registry of live rooms. It owns every Room
// exclusively: callers get copies (Snapshot, MoveResult) and never touch room
// fields. Rules questions are delegated to the engine package.
//
// Lifecycle:
//
//	waiting  -> playing   second member joins
//	playing  -> ended     a move wins or fills the board
//	ended    -> playing   both members vote to replay (ResetRoom)
//	any      -> waiting   one member leaves, one remains
//	any      -> (gone)    the last member leaves
//
// Concurrency:
//
// Each room carries its own mutex, so moves, votes and joins on one room are
// serialized while different rooms proceed in parallel. The registry map has
// a separate RWMutex. Pass-key hashing and comparison happen outside the room
// lock, and no method performs network I/O.
//
// Usage:
//
//	rooms := room.NewManager(room.NewBcryptHasher(0), logger)
//	defer rooms.Close()
//
//	id, err := rooms.CreateRoom("abcd", hostConn)
//	joined, err := rooms.JoinRoom(id, "abcd", guestConn)
//	result, err := rooms.ApplyMove(id, hostConn, 4)
package room
