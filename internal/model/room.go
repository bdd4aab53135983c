package model

// RoomSnapshot is a typed view of a room's full device set at a point in
// time. It is built per change event and never cached across events.
type RoomSnapshot struct {
	PairingCode string
	Devices     []DeviceState
}

// Remote returns the room's remote device, if exactly one exists.
func (r RoomSnapshot) Remote() (DeviceState, bool) {
	return r.deviceWithRole(RoleRemote)
}

// Receiver returns the room's receiver device, if exactly one exists.
func (r RoomSnapshot) Receiver() (DeviceState, bool) {
	return r.deviceWithRole(RoleReceiver)
}

// Syncable reports whether the room can participate in profile dispatch:
// exactly two devices, one remote and one receiver. Any other count or
// role combination disables dispatch for the room.
func (r RoomSnapshot) Syncable() bool {
	if len(r.Devices) != 2 {
		return false
	}
	_, hasRemote := r.Remote()
	_, hasReceiver := r.Receiver()
	return hasRemote && hasReceiver
}

func (r RoomSnapshot) deviceWithRole(role string) (DeviceState, bool) {
	var found DeviceState
	var count int
	for _, d := range r.Devices {
		if d.Role == role {
			found = d
			count++
		}
	}
	if count != 1 {
		return DeviceState{}, false
	}
	return found, true
}
