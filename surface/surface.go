// Copyright 2024 The Shard Authors. All rights reserved.

// Package surface defines the presentable window target that the
// render core consumes from the (external) windowing layer.
//
// The render core never creates or manages windows, pumps input
// events or otherwise participates in window-system integration.
// It only needs enough platform-specific data to create a
// swapchain against an existing, already-mapped window: a
// connection/display handle plus the native window/surface id.
// The windowing layer constructs a Handle value once it has a
// window on screen and hands it to driver.GPU.NewSwapchain.
package surface

// Kind identifies the windowing backend that produced a Handle.
type Kind int

// Supported surface kinds.
const (
	KindNone Kind = iota
	KindXCB
	KindWayland
	KindWin32
	KindAndroid
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindXCB:
		return "xcb"
	case KindWayland:
		return "wayland"
	case KindWin32:
		return "win32"
	case KindAndroid:
		return "android"
	default:
		return "none"
	}
}

// Handle is the minimal, backend-agnostic presentable window
// target consumed by driver.GPU.NewSwapchain.
// Concrete values are one of XCB, Wayland, Win32 or Android
// defined below; the HAL backend type-switches on the concrete
// type to extract what it needs to create a native surface.
type Handle interface {
	// Kind identifies the concrete handle type without a type
	// switch, so backends can fail fast with ErrCannotPresent
	// when given a handle for a platform they do not support.
	Kind() Kind

	// Width and Height report the current extent of the
	// surface, in pixels. The windowing layer is responsible
	// for keeping these current; the HAL reads them only when
	// (re)creating a swapchain.
	Width() int
	Height() int
}

// XCB is a Handle backed by an X11/XCB window.
type XCB struct {
	// Conn is the *xcb_connection_t owning Window, as an
	// opaque pointer. It must remain valid for the lifetime
	// of any swapchain created from this handle.
	Conn uintptr
	// Window is the xcb_window_t of the presentable window.
	Window uint32
	W, H   int
}

func (h XCB) Kind() Kind  { return KindXCB }
func (h XCB) Width() int  { return h.W }
func (h XCB) Height() int { return h.H }

// Wayland is a Handle backed by a Wayland surface.
type Wayland struct {
	// Display is the wl_display*, Surface the wl_surface*.
	Display uintptr
	Surface uintptr
	W, H    int
}

func (h Wayland) Kind() Kind  { return KindWayland }
func (h Wayland) Width() int  { return h.W }
func (h Wayland) Height() int { return h.H }

// Win32 is a Handle backed by a Win32 window.
type Win32 struct {
	// HInstance is the HINSTANCE of the module that created
	// HWnd; HWnd is the window handle itself.
	HInstance uintptr
	HWnd      uintptr
	W, H      int
}

func (h Win32) Kind() Kind  { return KindWin32 }
func (h Win32) Width() int  { return h.W }
func (h Win32) Height() int { return h.H }

// Android is a Handle backed by an ANativeWindow.
type Android struct {
	// Window is the ANativeWindow*.
	Window uintptr
	W, H   int
}

func (h Android) Kind() Kind  { return KindAndroid }
func (h Android) Width() int  { return h.W }
func (h Android) Height() int { return h.H }
