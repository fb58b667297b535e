// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package driver

// GPU is the main interface to an underlying driver
// implementation.
// It is used to create other types and to execute commands.
// A GPU is obtained from a call to Driver.Open.
type GPU interface {
	// Driver returns the Driver that owns the GPU.
	Driver() Driver

	// Commit commits a work item to the GPU for execution.
	// Wait operations defined in a command buffer apply to
	// the work item as a whole, so the order of command
	// buffers in wk.Work is meaningful.
	// wk is sent back on ch when every command buffer in it
	// completes execution. Command buffers referenced by wk
	// cannot be used for recording until then.
	Commit(wk *WorkItem, ch chan<- *WorkItem) error

	// NewCmdBuffer creates a new command buffer.
	// A primary command buffer can be committed directly; a
	// secondary command buffer cannot be committed and must
	// instead be run from a primary command buffer by a call
	// to CmdBuffer.Execute.
	NewCmdBuffer(secondary bool) (CmdBuffer, error)

	// NewShaderCode creates a new shader code.
	NewShaderCode(data []byte) (ShaderCode, error)

	// NewDescHeap creates a new descriptor heap.
	NewDescHeap(ds []Descriptor) (DescHeap, error)

	// NewDescTable creates a new descriptor table.
	NewDescTable(dh []DescHeap) (DescTable, error)

	// NewPipeline creates a new pipeline.
	// The state parameter must be a pointer to a GraphState or
	// a pointer to a CompState.
	NewPipeline(state any) (Pipeline, error)

	// NewPipelineCache creates a new pipeline cache, optionally
	// primed with data produced by a prior PipelineCache.Data
	// call. A nil or empty data starts an empty cache.
	NewPipelineCache(data []byte) (PipelineCache, error)

	// NewBuffer creates a new buffer.
	NewBuffer(size int64, visible bool, usg Usage) (Buffer, error)

	// NewBufferView creates a typed view of a range of buf,
	// for use in texel-buffer descriptors. off and size must
	// be multiples of pf.Size, and buf must have been created
	// with UShaderRead/UShaderWrite (storage) or UShaderConst
	// (uniform) usage.
	NewBufferView(buf Buffer, pf PixelFmt, off, size int64) (BufferView, error)

	// NewAccelStruct creates a top-level acceleration
	// structure with size bytes of backing storage, for use
	// in DAccelStruct descriptors.
	// Drivers whose device does not support acceleration
	// structures return an error.
	NewAccelStruct(size int64) (AccelStruct, error)

	// NewImage creates a new image.
	NewImage(pf PixelFmt, size Dim3D, layers, levels, samples int, usg Usage) (Image, error)

	// NewSampler creates a new Sampler.
	NewSampler(spln *Sampling) (Sampler, error)

	// Limits returns the implementation limits.
	// They are immutable for the lifetime of the GPU.
	Limits() Limits
}

// Destroyer is the interface that wraps the Destroy method.
// Types that implement this interface may allocate external
// memory that is not managed by GC, so Destroy must be
// called explicitly to ensure such memory is deallocated.
type Destroyer interface {
	Destroy()
}

// WorkItem groups the command buffers that must be committed
// together as a single submission. Command buffers in Work are
// executed in order, subject to the wait/signal semaphores that
// Transition establishes for swapchain images.
type WorkItem struct {
	Work []CmdBuffer

	// Err is set by the driver before wk is sent back on ch.
	// It reports failures that happen while waiting for the
	// commands to complete execution, as opposed to submission
	// failures, which Commit itself returns.
	Err error

	// Custom is caller-defined data that is not interpreted by
	// the driver. It is returned unchanged on ch once every
	// command buffer in Work completes execution, so callers can
	// use it to identify which WorkItem was completed (e.g., a
	// frame index) without maintaining a side table.
	Custom any
}

// CmdBuffer is the interface that defines a command buffer.
// Commands are recorded into command buffers and later
// committed to the GPU for execution. Recording is separate
// into logical blocks containing either rendering, compute
// or copy commands. Multiple logical blocks can be recorded
// into a single command buffer. The usage is as follows:
// First, call Begin to prepare the command buffer for
// recording. Then, if it succeeds:
//
// To record commands for a render pass:
//  1. call BeginPass
//  2. call Set* methods to configure rendering state
//  3. call Draw* commands
//  4. call EndPass
//
// To record compute commands:
//  1. call Set* methods to configure compute state
//  2. call Dispatch commands
//
// To record copy commands:
//  1. call Copy*/Fill commands
//
// Finally, call End and, if it succeeds, GPU.Commit.
// Note that BeginPass/EndPass must not be nested, and must
// always be ended before another call to BeginPass and
// prior to the final End call.
type CmdBuffer interface {
	Destroyer

	// Secondary reports whether the command buffer was created
	// for secondary use (i.e., to be run via Execute rather
	// than committed directly).
	Secondary() bool

	// Begin prepares the command buffer for recording.
	// This method must be called before any command
	// is recorded in the command buffer. It needs to
	// be called again if the command buffer is
	// executed or reset.
	Begin() error

	// BeginPass begins rendering into the given color and
	// depth/stencil targets. width, height and layers bound
	// the render area common to every target.
	BeginPass(width, height, layers int, color []ColorTarget, ds *DSTarget)

	// EndPass ends the current render pass.
	EndPass()

	// Execute records the given secondary command buffers for
	// execution at this point in the primary's command stream.
	// It must only be called on a primary command buffer,
	// outside of a render pass, and every entry in secondary
	// must have been created with NewCmdBuffer(true) and
	// already ended. Secondary command buffers record their
	// own render passes.
	Execute(secondary []CmdBuffer)

	// SetPipeline sets the pipeline.
	// There is a separate binding point for each
	// type of pipeline.
	SetPipeline(pl Pipeline)

	// SetViewport sets the bounds of one or more
	// viewports.
	SetViewport(vp []Viewport)

	// SetScissor sets the rectangles of one or more
	// viewport scissors.
	SetScissor(sciss []Scissor)

	// SetBlendColor sets the constant blend color.
	SetBlendColor(r, g, b, a float32)

	// SetStencilRef sets the stencil reference value.
	SetStencilRef(value uint32)

	// SetVertexBuf sets one or more vertex buffers.
	// off must be aligned to the size of the data
	// format as specified in the vertex input of
	// the bound graphics pipeline.
	SetVertexBuf(start int, buf []Buffer, off []int64)

	// SetIndexBuf sets the index buffer.
	// off must be aligned to 4 bytes.
	SetIndexBuf(format IndexFmt, buf Buffer, off int64)

	// SetDescTableGraph sets a descriptor table
	// range for graphics pipelines.
	SetDescTableGraph(table DescTable, start int, heapCopy []int)

	// SetDescTableComp sets a descriptor table
	// range for compute pipelines.
	SetDescTableComp(table DescTable, start int, heapCopy []int)

	// Draw draws primitives.
	// It must only be called during a render pass.
	Draw(vertCount, instCount, baseVert, baseInst int)

	// DrawIndexed draws indexed primitives.
	// It must only be called during a render pass.
	DrawIndexed(idxCount, instCount, baseIdx, vertOff, baseInst int)

	// Dispatch dispatches compute thread groups.
	Dispatch(grpCountX, grpCountY, grpCountZ int)

	// CopyBuffer copies data between buffers.
	CopyBuffer(param *BufferCopy)

	// CopyImage copies data between images.
	CopyImage(param *ImageCopy)

	// CopyBufToImg copies data from a buffer to
	// an image.
	CopyBufToImg(param *BufImgCopy)

	// CopyImgToBuf copies data from an image to
	// a buffer.
	CopyImgToBuf(param *BufImgCopy)

	// Fill fills a buffer range with copies of
	// a byte value.
	// off and size must be aligned to 4 bytes.
	Fill(buf Buffer, off int64, value byte, size int64)

	// Barrier inserts a number of global barriers
	// in the command buffer.
	Barrier(b []Barrier)

	// Transition inserts a number of image layout
	// transitions in the command buffer.
	Transition(t []Transition)

	// End ends command recording and prepares the
	// command buffer for execution.
	// New recordings are not allowed until the
	// command buffer is executed or reset.
	// Upon failure, the command buffer is reset.
	End() error

	// Reset discards all recorded commands from the
	// command buffer.
	Reset() error
}

// BufferCopy describes the parameters of a copy command
// that copies data from one buffer to another.
type BufferCopy struct {
	From    Buffer
	FromOff int64
	To      Buffer
	ToOff   int64
	Size    int64
}

// ImageCopy describes the parameters of a copy command
// that copies data from one image to another.
type ImageCopy struct {
	From      Image
	FromOff   Off3D
	FromLayer int
	FromLevel int
	To        Image
	ToOff     Off3D
	ToLayer   int
	ToLevel   int
	Size      Dim3D
	Layers    int
}

// BufImgCopy describes the parameters of a copy command
// that copies data between a buffer and an image.
// BufOff must be aligned to 512 bytes.
// RowStrd must be aligned to 256 bytes.
type BufImgCopy struct {
	Buf    Buffer
	BufOff int64
	// RowStrd and SlcStrd specify the addressing of image
	// data in the buffer. They are given in pixels; RowStrd
	// is the row length and SlcStrd the image height.
	RowStrd int
	SlcStrd int
	Img     Image
	ImgOff  Off3D
	Layer   int
	Level   int
	Layers  int
	Size    Dim3D
	// DepthCopy selects either the depth or stencil
	// aspects to copy. It is only used if Img has a
	// combined depth/stencil format.
	DepthCopy bool
}

// Sync is the type of a synchronization scope.
type Sync int

// Synchronization scopes.
const (
	SVertexInput Sync = 1 << iota
	SVertexShading
	SFragmentShading
	SComputeShading
	SColorOutput
	SDSOutput
	SDraw
	SResolve
	SCopy
	SGraphics
	SAll
	SNone Sync = 0
)

// Access is the type of a memory access scope.
type Access int

// Memory access scopes.
const (
	AVertexBufRead Access = 1 << iota
	AIndexBufRead
	AColorRead
	AColorWrite
	ADSRead
	ADSWrite
	AResolveRead
	AResolveWrite
	ACopyRead
	ACopyWrite
	AShaderRead
	AShaderWrite
	AAnyRead
	AAnyWrite
	ANone Access = 0
)

// Layout is the type of an image layout.
type Layout int

// Image layouts.
const (
	LUndefined Layout = iota
	LShaderStore
	LColorTarget
	LDSTarget
	LDSRead
	LResolveSrc
	LResolveDst
	LCopySrc
	LCopyDst
	LShaderRead
	LPresent
)

// Barrier represents a synchronization barrier.
type Barrier struct {
	SyncBefore   Sync
	SyncAfter    Sync
	AccessBefore Access
	AccessAfter  Access
}

// Transition represents a layout transition on a
// range of image subresources.
type Transition struct {
	Barrier

	LayoutBefore Layout
	LayoutAfter  Layout
	Img          Image
	Layer        int
	Layers       int
	Level        int
	Levels       int
}

// LoadOp is the type of an attachment's load operation.
type LoadOp int

// Load operations.
const (
	LDontCare LoadOp = iota
	LClear
	LLoad
)

// StoreOp is the type of an attachment's store operation.
type StoreOp int

// Store operations.
const (
	SDontCare StoreOp = iota
	SStore
)

// ColorTarget describes a single color attachment of a render
// pass begun with dynamic rendering (BeginPass). Color must be
// a view created with URenderTarget usage; Resolve, if set,
// receives the multisample-resolved result.
type ColorTarget struct {
	Color   ImageView
	Resolve ImageView
	Clear   [4]float32
	Load    LoadOp
	Store   StoreOp
}

// ClearFloat32 returns a clear color value for use in a
// ColorTarget.
func ClearFloat32(r, g, b, a float32) [4]float32 {
	return [4]float32{r, g, b, a}
}

// DSTarget describes the depth/stencil attachment of a render
// pass begun with dynamic rendering (BeginPass). The depth and
// stencil aspects of DS are loaded/stored/cleared
// independently, according to the format's available aspects.
type DSTarget struct {
	DS      ImageView
	Resolve ImageView
	LoadD   LoadOp
	StoreD  StoreOp
	ClearD  float32
	LoadS   LoadOp
	StoreS  StoreOp
	ClearS  uint32
}

// ShaderCode is the interface that defines a shader binary
// for execution in a programmable pipeline stage.
type ShaderCode interface {
	Destroyer
}

// ShaderFunc specifies a function within a shader binary.
type ShaderFunc struct {
	Code ShaderCode
	Name string
}

// Stage is a mask of programmable stages.
type Stage int

// Stages.
const (
	SVertex Stage = 1 << iota
	SFragment
	SCompute
)

// DescType is the type of a descriptor.
type DescType int

// Descriptor types.
const (
	// Read/write buffer.
	DBuffer DescType = iota
	// Read/write image.
	DImage
	// Constant buffer.
	DConstant
	// Sampled texture.
	DTexture
	// Texture sampler.
	DSampler
	// Sampled texture bound together with its sampler
	// in a single binding.
	DCombinedImage
	// Read-only texel buffer.
	DUniformTexel
	// Read/write texel buffer.
	DStorageTexel
	// Top-level acceleration structure.
	DAccelStruct
)

// Descriptor describes data for use in shaders.
type Descriptor struct {
	Type   DescType
	Stages Stage
	Nr     int
	Len    int
}

// DescHeap is the interface that defines a set of descriptors
// for use in programmable pipeline stages.
type DescHeap interface {
	Destroyer

	// New creates enough storage for n copies of each
	// descriptor.
	// All copies from a previous call to New are invalidated,
	// unless n is the same as the current Count value, in
	// which case it is a no-op.
	// Calling New(0) frees all storage.
	New(n int) error

	// SetBuffer updates the buffer ranges referred by the
	// given descriptor of the given heap copy.
	// The descriptor must be of type DBuffer or DConstant.
	// Buffer ranges must be aligned to 256 bytes.
	SetBuffer(cpy, nr, start int, buf []Buffer, off, size []int64)

	// SetImage updates the image views referred by the
	// given descriptor of the given heap copy.
	// The descriptor must be of type DImage or DTexture.
	SetImage(cpy, nr, start int, iv []ImageView)

	// SetSampler updates the samplers referred by the
	// given descriptor of the given heap copy.
	// The descriptor must be of type DSampler.
	SetSampler(cpy, nr, start int, splr []Sampler)

	// SetCombinedImage updates both the image view and sampler
	// of the given descriptor of the given heap copy in a
	// single write.
	// The descriptor must be of type DCombinedImage.
	SetCombinedImage(cpy, nr, start int, iv []ImageView, splr []Sampler)

	// SetTexelBuffer updates the buffer views referred by the
	// given descriptor of the given heap copy.
	// The descriptor must be of type DUniformTexel or
	// DStorageTexel.
	SetTexelBuffer(cpy, nr, start int, bv []BufferView)

	// SetAccelStruct updates the acceleration structures
	// referred by the given descriptor of the given heap copy.
	// The descriptor must be of type DAccelStruct.
	SetAccelStruct(cpy, nr, start int, as []AccelStruct)

	// Count returns the number of heap copies created
	// by New.
	Count() int
}

// DescTable is the interface that defines the bindings
// between a number of descriptor heaps and the shaders
// in a pipeline.
type DescTable interface {
	Destroyer
}

// VertexFmt describes the format of a vertex input.
type VertexFmt int

// Vertex formats.
const (
	// Signed 8-bit integer, 1-4 components.
	Int8 VertexFmt = iota
	Int8x2
	Int8x3
	Int8x4
	// Signed 16-bit integer, 1-4 components.
	Int16
	Int16x2
	Int16x3
	Int16x4
	// Signed 32-bit integer, 1-4 components.
	Int32
	Int32x2
	Int32x3
	Int32x4
	// Unsigned 8-bit integer, 1-4 components.
	UInt8
	UInt8x2
	UInt8x3
	UInt8x4
	// Unsigned 16-bit integer, 1-4 components.
	UInt16
	UInt16x2
	UInt16x3
	UInt16x4
	// Unsigned 32-bit integer, 1-4 components.
	UInt32
	UInt32x2
	UInt32x3
	UInt32x4
	// Single precision floating-point, 1-4 components.
	Float32
	Float32x2
	Float32x3
	Float32x4
)

// VertexIn describes a vertex input.
// Consecutive vertices are fetched Stride bytes apart.
// Each vertex input represents a separate buffer binding,
// interleaved inputs are not supported.
// The meaning of the Nr and Name fields is shader-specific.
type VertexIn struct {
	Format VertexFmt
	Stride int
	Nr     int
	Name   string
}

// Topology is the type of primitive topologies,
// which determines how vertex data is assembled.
type Topology int

// Primitive topologies.
const (
	TPoint Topology = iota
	TLine
	TLnStrip
	TTriangle
	TTriStrip
)

// IndexFmt describes the format of index buffer data.
type IndexFmt int

// Index formats.
const (
	Index16 IndexFmt = 2
	Index32 IndexFmt = 4
)

// Viewport defines the bounds of a viewport.
type Viewport struct {
	X, Y, Width, Height, Znear, Zfar float32
}

// Scissor defines a scissor rectangle.
type Scissor struct {
	X, Y, Width, Height int
}

// CullMode is the type of cull modes, which
// determines primitive culling based on triangle
// facing direction.
type CullMode int

// Cull modes.
const (
	CNone CullMode = iota
	CFront
	CBack
)

// FillMode is the type of triangle fill modes, which
// determines the final rasterization of triangles.
type FillMode int

// Triangle fill modes.
const (
	FFill FillMode = iota
	FLines
)

// RasterState defines the rasterization state of a
// graphics pipeline.
type RasterState struct {
	// Discard disables rasterization entirely.
	Discard bool
	// Winding order is either clockwise or counter-clockwise.
	Clockwise bool
	Cull      CullMode
	Fill      FillMode
	// DepthBias enables depth bias computation.
	DepthBias bool
	BiasValue float32
	BiasSlope float32
	BiasClamp float32
}

// CmpFunc is the type of comparison functions.
type CmpFunc int

// Comparison functions.
const (
	CNever CmpFunc = iota
	CLess
	CEqual
	CLessEqual
	CGreater
	CNotEqual
	CGreaterEqual
	CAlways
)

// StencilOp is the type of stencil operations.
type StencilOp int

// Stencil operations.
const (
	SKeep StencilOp = iota
	SZero
	SReplace
	SIncClamp
	SDecClamp
	SInvert
	SIncWrap
	SDecWrap
)

// StencilT defines stencil test parameters for the
// depth/stencil state of a graphics pipeline.
type StencilT struct {
	DSFail    [2]StencilOp
	Pass      StencilOp
	ReadMask  uint32
	WriteMask uint32
	Cmp       CmpFunc
}

// DSState defines the depth/stencil state of a
// graphics pipeline.
type DSState struct {
	// DepthTest enables the depth test.
	DepthTest bool
	// DepthWrite enables depth writes.
	DepthWrite bool
	DepthCmp   CmpFunc
	// StencilTest enables the stencil test.
	StencilTest bool
	Front       StencilT
	Back        StencilT
}

// BlendOp is the type of blend operations.
type BlendOp int

// Blend operations.
const (
	BAdd BlendOp = iota
	BSubtract
	BRevSubtract
	BMin
	BMax
)

// BlendFac is the type of blend factors.
type BlendFac int

// Blend factors.
const (
	BZero BlendFac = iota
	BOne
	BSrcColor
	BInvSrcColor
	BSrcAlpha
	BInvSrcAlpha
	BDstColor
	BInvDstColor
	BDstAlpha
	BInvDstAlpha
	BSrcAlphaSaturated
	BBlendColor
	BInvBlendColor
)

// ColorMask is the type of a color write mask.
type ColorMask int

// Color write masks.
const (
	CRed ColorMask = 1 << iota
	CGreen
	CBlue
	CAlpha
	// Write to all channels.
	CAll ColorMask = 1<<iota - 1
)

// ColorBlend defines a render target's blend parameters
// for the color blend state of a graphics pipeline.
type ColorBlend struct {
	// Blend enables blending.
	Blend bool
	// WriteMask specifies which color channels to write.
	// If blending is not enabled, the incoming samples
	// are written unmodified to the specified channels.
	WriteMask ColorMask
	// RGB and alpha blending are configured separately.
	SrcFacRGB BlendFac
	DstFacRGB BlendFac
	OpRGB     BlendOp
	SrcFacA   BlendFac
	DstFacA   BlendFac
	OpA       BlendOp
}

// BlendState defines the color blend state of a
// graphics pipeline.
type BlendState struct {
	// IndependentBlend enables each render target to use
	// different blend parameters.
	IndependentBlend bool
	// Color contains color blend parameters for each
	// render target. If IndependentBlend is false,
	// only Color[0] is used.
	Color []ColorBlend
}

// GraphState defines the combination of programmable and
// fixed stages of a graphics pipeline.
// Graphics pipelines created with dynamic rendering are not
// tied to a render pass object; instead, the formats of the
// targets they will be used with are given directly.
// DSFmt must be FInvalid when the pipeline does not write a
// depth/stencil target.
type GraphState struct {
	VertFunc ShaderFunc
	FragFunc ShaderFunc
	Desc     DescTable
	Input    []VertexIn
	Topology Topology
	Raster   RasterState
	Samples  int
	DS       DSState
	Blend    BlendState
	ColorFmt []PixelFmt
	DSFmt    PixelFmt
}

// CompState defines the state of a compute pipeline.
// Compute pipelines are created from compute states.
// The state is comprised of a single compute shader and a
// descriptor table describing the resources accessible to
// this shader.
type CompState struct {
	Func ShaderFunc
	Desc DescTable
}

// Pipeline is the interface that defines a GPU pipeline.
type Pipeline interface {
	Destroyer
}

// PipelineCache is the interface that defines a persistent
// store of compiled pipeline state, used to speed up
// subsequent NewPipeline calls that hit the same state.
type PipelineCache interface {
	Destroyer

	// Data returns a blob that can be written to stable
	// storage and later passed to GPU.NewPipelineCache to
	// avoid recompiling pipeline state that was already
	// seen in a previous run.
	Data() ([]byte, error)
}

// Usage is a mask indicating valid uses for a resource.
type Usage int

// Usage flags for Buffer and Image.
const (
	// The resource can be read in shaders.
	UShaderRead Usage = 1 << iota
	// The resource can be written in shaders.
	UShaderWrite
	// The resource can provide constant data for shaders.
	// Valid only for Buffer.
	UShaderConst
	// The resource can be sampled in shaders.
	// Valid only for Image.
	UShaderSample
	// The resource can provide vertex data for draw calls.
	// Valid only for Buffer.
	UVertexData
	// The resource can provide index data for draw calls.
	// Valid only for Buffer.
	UIndexData
	// The resource can be used as render target.
	// Valid only for Image.
	URenderTarget
	// The resource can be the source of a copy command.
	UCopySrc
	// The resource can be the destination of a copy command.
	UCopyDst
	// The resource can be used for any purpose.
	UGeneric Usage = 1<<iota - 1
)

// Buffer is the interface that defines a GPU buffer.
// The size of the buffer is fixed. When a larger buffer
// is necessary, a new one must be created and the data
// must be copied explicitly.
type Buffer interface {
	Destroyer

	// Visible returns whether the buffer is host visible.
	// Non-visible memory cannot be accessed by the CPU.
	Visible() bool

	// Bytes returns a slice of length Cap referring to the
	// underlying data. If the buffer is not host visible,
	// it returns nil instead.
	// The slice is valid for the lifetime of the buffer.
	Bytes() []byte

	// Cap returns the capacity of the buffer in bytes,
	// which may be greater than the size requested during
	// buffer creation.
	// This value is immutable.
	Cap() int64
}

// BufferView is the interface that defines a typed view of
// a Buffer range, as read or written through texel-buffer
// descriptors.
type BufferView interface {
	Destroyer
}

// AccelStruct is the interface that defines a top-level
// acceleration structure, as read through DAccelStruct
// descriptors. Building its contents is the concern of the
// layer above; the driver only stores and binds it.
type AccelStruct interface {
	Destroyer
}

// PixelFmt describes the format of a pixel.
type PixelFmt int32

// FInvalid identifies an invalid format.
// It is the zero PixelFmt value and is used as a sentinel
// where an optional format is absent, such as
// GraphState.DSFmt for pipelines without a depth/stencil
// target.
const FInvalid PixelFmt = 0

// Internal format bit.
// All internal formats have this bit set. Client code
// must not create images using internal formats.
const FInternal PixelFmt = -1 << 31

// IsInternal returns whether f is an internal format.
func (f PixelFmt) IsInternal() bool { return f&FInternal == FInternal }

// Pixel formats.
const (
	// Color, 8-bit channels.
	RGBA8Unorm PixelFmt = iota + 1
	RGBA8Norm
	RGBA8Uint
	RGBA8Int
	RGBA8SRGB
	BGRA8Unorm
	BGRA8SRGB
	RG8Unorm
	RG8Norm
	RG8Uint
	RG8Int
	R8Unorm
	R8Norm
	R8Uint
	R8Int
	// Color, 16-bit channels.
	RGBA16Float
	RGBA16Uint
	RGBA16Int
	RG16Float
	RG16Uint
	RG16Int
	R16Float
	R16Uint
	R16Int
	// Color, 32-bit channels.
	RGBA32Float
	RGBA32Uint
	RGBA32Int
	RG32Float
	RG32Uint
	RG32Int
	R32Float
	R32Uint
	R32Int
	// Depth/Stencil.
	D16Unorm
	D32Float
	S8Uint
	D24UnormS8Uint
	D32FloatS8Uint
)

// Size returns the size in bytes of a single pixel stored
// in format f. For combined depth/stencil formats, it is
// the size of both aspects as laid out in a buffer copy.
// It returns 0 for internal and invalid formats.
func (f PixelFmt) Size() int {
	switch f {
	case RGBA8Unorm, RGBA8Norm, RGBA8Uint, RGBA8Int, RGBA8SRGB, BGRA8Unorm, BGRA8SRGB:
		return 4
	case RG8Unorm, RG8Norm, RG8Uint, RG8Int:
		return 2
	case R8Unorm, R8Norm, R8Uint, R8Int, S8Uint:
		return 1
	case RGBA16Float, RGBA16Uint, RGBA16Int:
		return 8
	case RG16Float, RG16Uint, RG16Int:
		return 4
	case R16Float, R16Uint, R16Int, D16Unorm:
		return 2
	case RGBA32Float, RGBA32Uint, RGBA32Int:
		return 16
	case RG32Float, RG32Uint, RG32Int:
		return 8
	case R32Float, R32Uint, R32Int, D32Float:
		return 4
	case D24UnormS8Uint:
		return 4
	case D32FloatS8Uint:
		return 5
	}
	return 0
}

// Dim3D is a three-dimensional size.
type Dim3D struct {
	Width, Height, Depth int
}

// Off3D is a three-dimensional offset.
type Off3D struct {
	X, Y, Z int
}

// Image is the interface that defines a GPU image.
// Direct access to image memory is not provided, so copying
// data from the CPU to an image resource requires the use
// of a staging buffer.
type Image interface {
	Destroyer

	// NewView creates a new image view.
	// Image views represent a typed view of image storage.
	// Its type must be valid according to the image from
	// which it is created and the parameters given when
	// calling this method (e.g, creating a view of 3D type
	// from a 2D image is not allowed, and neither is a
	// view of array type if the view is created from a
	// single layer).
	// All views created from a given image must be
	// detroyed before the image itself is destroyed.
	NewView(typ ViewType, layer, layers, level, levels int) (ImageView, error)
}

// ViewType is the type of a resource view.
type ViewType int

// View types.
const (
	IView1D ViewType = iota
	IView2D
	IView3D
	IViewCube
	IView1DArray
	IView2DArray
	IViewCubeArray
	IView2DMS
	IView2DMSArray
)

// ImageView is the interface that defines a typed view of
// an Image resource.
type ImageView interface {
	Destroyer

	// Image returns the image from which the view was
	// created. For swapchain views, it identifies the
	// swapchain's own image, which is valid as the target
	// of layout transitions but must not be destroyed by
	// the caller.
	Image() Image
}

// Filter is the type of sampler filters.
type Filter int

// Filters.
const (
	FNearest Filter = iota
	FLinear
	// FNoMipmap forces mip level 0 to be used.
	// It is only valid as the mip filter of a sampler.
	FNoMipmap
)

// AddrMode is the type of sampler address modes.
type AddrMode int

// Address modes.
const (
	AWrap AddrMode = iota
	AMirror
	AClamp
)

// Sampler is the interface that defines an image sampler.
type Sampler interface {
	Destroyer
}

// Sampling describes image sampler state.
// Cmp is only meaningful when DoCmp is set.
type Sampling struct {
	Min      Filter
	Mag      Filter
	Mipmap   Filter
	AddrU    AddrMode
	AddrV    AddrMode
	AddrW    AddrMode
	MaxAniso int
	DoCmp    bool
	Cmp      CmpFunc
	MinLOD   float32
	MaxLOD   float32
}

// Limits describes implementation limits.
// These may vary across drivers and devices.
type Limits struct {
	// Maximum width of 1D images.
	MaxImage1D int
	// Maximum width and height of 2D images.
	MaxImage2D int
	// Maximum width and height of cube images.
	MaxImageCube int
	// Maximum width, height and depth of 3D images.
	MaxImage3D int
	// Maximum number of layers in an image.
	MaxLayers int

	// Maximum number of descriptor heaps in a
	// descriptor table.
	MaxDescHeaps int
	// Maximum number of buffer descriptors usable
	// per stage.
	MaxDescBuffer int
	// Maximum number of image descriptors usable
	// per stage.
	MaxDescImage int
	// Maximum number of constant descriptors usable
	// per stage.
	MaxDescConstant int
	// Maximum number of texture descriptors usable
	// per stage.
	MaxDescTexture int
	// Maximum number of sampler descriptors usable
	// per stage.
	MaxDescSampler int
	// Maximum range of buffer descriptors.
	MaxDescBufferRange int64
	// Maximum range of constant descriptors.
	MaxDescConstantRange int64

	// Maximum number of color render targets bound
	// at once.
	MaxColorTargets int
	// Maximum width/height for a render target.
	MaxRenderSize [2]int
	// Maximum number of layers in a render target.
	MaxRenderLayers int
	// Maximum size of a point primitive.
	MaxPointSize float32
	// Maximum number of viewports.
	MaxViewports int

	// Maximum number of vertex inputs in a
	// vertex shader.
	MaxVertexIn int
	// Maximum number of fragment inputs in a
	// fragment shader.
	MaxFragmentIn int

	// Maximum dispatch count.
	MaxDispatch [3]int
}
