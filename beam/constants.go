package beam

// Container magic tokens. Both are compared case-insensitively.
const (
	MagicForm = "FOR1"
	MagicBeam = "BEAM"
)

// Chunk names. Lookup is case-insensitive.
const (
	ChunkAtomUTF8    = "AtU8"
	ChunkAtom        = "Atom"
	ChunkImports     = "ImpT"
	ChunkExports     = "ExpT"
	ChunkLocals      = "LocT"
	ChunkLambdas     = "FunT"
	ChunkStrings     = "StrT"
	ChunkCompileInfo = "CInf"
	ChunkAttributes  = "Attr"
	ChunkLiterals    = "LitT"
	ChunkLines       = "Line"
	ChunkCode        = "Code"

	// Recognised but not decoded.
	ChunkAbstract          = "Abst"
	ChunkDebugInfo         = "Dbgi"
	ChunkCompressedAttrs   = "CatT"
	ChunkDocs              = "Docs"
	ChunkExportDeprecation = "ExDp"
	ChunkExportDocs        = "ExDc"
	ChunkTypes             = "Type"
	ChunkMeta              = "Meta"
)

// External term format markers.
const (
	etfVersion    = 131
	etfCompressed = 80
)

// External term format tags.
const (
	TagNewFloat      byte = 70
	TagBitBinary     byte = 77
	TagSmallInteger  byte = 97
	TagInteger       byte = 98
	TagFloat         byte = 99
	TagAtom          byte = 100
	TagSmallTuple    byte = 104
	TagLargeTuple    byte = 105
	TagNil           byte = 106
	TagString        byte = 107
	TagList          byte = 108
	TagBinary        byte = 109
	TagSmallBig      byte = 110
	TagLargeBig      byte = 111
	TagExport        byte = 113
	TagSmallAtom     byte = 115
	TagMap           byte = 116
	TagAtomUTF8      byte = 118
	TagSmallAtomUTF8 byte = 119
)

// Record sizes of the fixed-stride tables.
const (
	importStride   = 12
	functionStride = 12
	lambdaStride   = 24
)

// floatExtSize is the fixed width of the textual FLOAT_EXT payload.
const floatExtSize = 31
