package deck

import "errors"

var (
	ErrNotFound      = errors.New("deck: resource not found")
	ErrAddress       = errors.New("deck: invalid site address")
	ErrUnassigned    = errors.New("deck: resource not assigned to a rail")
	ErrDuplicateName = errors.New("deck: duplicate resource name")
	ErrSlotOccupied  = errors.New("deck: slot already occupied")
	ErrSlotRange     = errors.New("deck: slot index out of range")
	ErrRailRange     = errors.New("deck: rail index out of range")
	ErrRailOccupied  = errors.New("deck: rail already occupied")
	ErrNotSited      = errors.New("deck: resource has no addressable sites")
)
