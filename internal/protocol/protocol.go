package protocol

import "strconv"

// ID identifies an exact wire protocol revision.
type ID int32

// DictionaryID groups protocol revisions that share identical numeric
// item/block tables.
type DictionaryID int32

// Known wire revisions.
const (
	V1_19_70 ID = 575
	V1_19_80 ID = 582
	V1_20_0  ID = 589
	V1_20_10 ID = 594
	V1_20_30 ID = 618
	V1_20_80 ID = 671
)

func (p ID) String() string { return strconv.Itoa(int(p)) }

func (d DictionaryID) String() string { return strconv.Itoa(int(d)) }

// HasChunkDimension reports whether LEVEL_CHUNK carries a dimension id.
func (p ID) HasChunkDimension() bool { return p >= V1_20_0 }

// SupportsEmptyStorage reports whether a single-valued block storage may be
// written with zero bits per block.
func (p ID) SupportsEmptyStorage() bool { return p >= V1_19_80 }

// HasShapedSymmetry reports whether shaped recipes carry the assume-symmetry flag.
func (p ID) HasShapedSymmetry() bool { return p >= V1_20_80 }

// HasRecipeUnlocking reports whether crafting recipes carry an unlocking requirement.
func (p ID) HasRecipeUnlocking() bool { return p >= V1_20_30 }
