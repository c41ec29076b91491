package usbwatch

import (
	"context"
	"log"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

// Supported reports whether arrivals are detected on this platform.
const Supported = true

// CoreFoundation and IOKit handle types.
type (
	cfAllocatorRef   uintptr
	cfIndex          int64
	cfNumberRef      uintptr
	cfRunLoopRef     uintptr
	cfStringRef      uintptr
	cfTypeRef        uintptr
	cfStringEncoding uint32

	hidDeviceRef  uintptr
	hidManagerRef uintptr
	ioOptionBits  uint32
	ioReturn      int32
)

const (
	cfAllocatorDefault   cfAllocatorRef   = 0
	cfNumberSInt16Type   cfIndex          = 2
	cfStringEncodingUTF8 cfStringEncoding = 0x08000100

	hidOptionsNone ioOptionBits = 0
	ioSuccess      ioReturn     = 0
)

// framework bindings, resolved on first Watch
var (
	cfNumberGetValue        func(number cfNumberRef, theType cfIndex, valuePtr unsafe.Pointer) bool
	cfRelease               func(cf cfTypeRef)
	cfRunLoopGetCurrent     func() cfRunLoopRef
	cfRunLoopRun            func()
	cfStringCreateWithBytes func(alloc cfAllocatorRef, bytes []byte, numBytes cfIndex, encoding cfStringEncoding, isExternalRepresentation bool) cfStringRef

	hidDeviceGetProperty              func(device hidDeviceRef, key cfStringRef) cfTypeRef
	hidManagerCreate                  func(allocator cfAllocatorRef, options ioOptionBits) hidManagerRef
	hidManagerOpen                    func(manager hidManagerRef, options ioOptionBits) ioReturn
	hidManagerSetDeviceMatching       func(manager hidManagerRef, matching uintptr)
	hidManagerRegisterMatchedCallback func(manager hidManagerRef, callback uintptr, context unsafe.Pointer)
	hidManagerScheduleWithRunLoop     func(manager hidManagerRef, runLoop cfRunLoopRef, runLoopMode cfStringRef)

	runLoopDefaultMode uintptr
	vendorIDKey        cfStringRef
)

func loadFrameworks() error {
	cf, err := purego.Dlopen("/System/Library/Frameworks/CoreFoundation.framework/CoreFoundation", purego.RTLD_LAZY|purego.RTLD_GLOBAL)
	if err != nil {
		return err
	}
	purego.RegisterLibFunc(&cfNumberGetValue, cf, "CFNumberGetValue")
	purego.RegisterLibFunc(&cfRelease, cf, "CFRelease")
	purego.RegisterLibFunc(&cfRunLoopGetCurrent, cf, "CFRunLoopGetCurrent")
	purego.RegisterLibFunc(&cfRunLoopRun, cf, "CFRunLoopRun")
	purego.RegisterLibFunc(&cfStringCreateWithBytes, cf, "CFStringCreateWithBytes")
	if runLoopDefaultMode, err = purego.Dlsym(cf, "kCFRunLoopDefaultMode"); err != nil {
		return err
	}

	iokit, err := purego.Dlopen("/System/Library/Frameworks/IOKit.framework/IOKit", purego.RTLD_LAZY|purego.RTLD_GLOBAL)
	if err != nil {
		return err
	}
	purego.RegisterLibFunc(&hidDeviceGetProperty, iokit, "IOHIDDeviceGetProperty")
	purego.RegisterLibFunc(&hidManagerCreate, iokit, "IOHIDManagerCreate")
	purego.RegisterLibFunc(&hidManagerOpen, iokit, "IOHIDManagerOpen")
	purego.RegisterLibFunc(&hidManagerSetDeviceMatching, iokit, "IOHIDManagerSetDeviceMatching")
	purego.RegisterLibFunc(&hidManagerRegisterMatchedCallback, iokit, "IOHIDManagerRegisterDeviceMatchingCallback")
	purego.RegisterLibFunc(&hidManagerScheduleWithRunLoop, iokit, "IOHIDManagerScheduleWithRunLoop")

	key := []byte("VendorID")
	vendorIDKey = cfStringCreateWithBytes(cfAllocatorDefault, key, cfIndex(len(key)), cfStringEncodingUTF8, false)
	return nil
}

var (
	managerOnce sync.Once
	matchedPtr  uintptr
)

func deviceMatched(_ unsafe.Pointer, _ ioReturn, _ uintptr, dev hidDeviceRef) {
	vid, ok := vendorOf(dev)
	if !ok {
		return
	}
	if registry.arrived(vid) > 0 {
		log.Printf("USB device arrived (vendor 0x%04x)", vid)
	}
}

func vendorOf(dev hidDeviceRef) (uint16, bool) {
	if vendorIDKey == 0 {
		return 0, false
	}
	prop := hidDeviceGetProperty(dev, vendorIDKey)
	if prop == 0 {
		return 0, false
	}
	var vid uint16
	if !cfNumberGetValue(cfNumberRef(prop), cfNumberSInt16Type, unsafe.Pointer(&vid)) {
		return 0, false
	}
	return vid, true
}

// runManager matches every HID device on a dedicated run loop thread for
// the life of the process. Vendors are filtered in the callback.
func runManager() {
	if err := loadFrameworks(); err != nil {
		log.Printf("usbwatch: loading IOKit: %v", err)
		return
	}
	matchedPtr = purego.NewCallback(deviceMatched)

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		mgr := hidManagerCreate(cfAllocatorDefault, hidOptionsNone)
		if rv := hidManagerOpen(mgr, hidOptionsNone); rv != ioSuccess {
			log.Printf("usbwatch: failed to open IOHIDManager: 0x%08x", rv)
			return
		}
		hidManagerSetDeviceMatching(mgr, 0)

		rl := cfRunLoopGetCurrent()
		hidManagerScheduleWithRunLoop(mgr, rl, **(**cfStringRef)(unsafe.Pointer(&runLoopDefaultMode)))
		hidManagerRegisterMatchedCallback(mgr, matchedPtr, nil)

		log.Println("usbwatch: listening for USB HID device arrivals")
		cfRunLoopRun()
	}()
}

// Watch returns a channel that receives a signal each time a USB HID device
// with the given vendor ID appears on the bus. Devices already present when
// the manager starts are reported too. The channel is closed when ctx is
// done.
func Watch(ctx context.Context, vendorID uint16) <-chan struct{} {
	ch := registry.subscribe(ctx, vendorID)
	managerOnce.Do(runManager)
	return ch
}
