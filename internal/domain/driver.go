package domain

// Driver represents a driver profile in the system.
type Driver struct {
	ID      string
	Name    string
	Phone   string
	Vehicle string
	Plate   string
}

// ProfileComplete reports whether the driver may be offered orders.
// Eligibility requires every profile field to be filled in.
func (d *Driver) ProfileComplete() bool {
	return d.Name != "" && d.Phone != "" && d.Vehicle != "" && d.Plate != ""
}

// Snapshot copies the profile fields frozen onto an order at assignment.
func (d *Driver) Snapshot() DriverSnapshot {
	return DriverSnapshot{
		Name:    d.Name,
		Phone:   d.Phone,
		Vehicle: d.Vehicle,
		Plate:   d.Plate,
	}
}
