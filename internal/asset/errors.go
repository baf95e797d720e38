package asset

import "errors"

var (
	// ErrAssetNotFound is returned when an asset ID does not exist.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrAssetTagExists is returned when an asset tag is already in use.
	ErrAssetTagExists = errors.New("asset tag already exists")

	// ErrInvalidAsset is returned when an asset fails validation.
	ErrInvalidAsset = errors.New("invalid asset")

	// ErrNotAvailable is returned when assigning an asset that is not available.
	ErrNotAvailable = errors.New("asset is not available")

	// ErrNotAssigned is returned when releasing an asset that is not assigned.
	ErrNotAssigned = errors.New("asset is not assigned")
)
