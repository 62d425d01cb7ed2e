//go:build darwin

package permissions

/*
#cgo LDFLAGS: -framework AVFoundation -framework Cocoa
#import <AVFoundation/AVFoundation.h>
#import <Cocoa/Cocoa.h>

int checkMediaPermission(int video) {
    AVMediaType type = video ? AVMediaTypeVideo : AVMediaTypeAudio;
    AVAuthorizationStatus status = [AVCaptureDevice authorizationStatusForMediaType:type];
    return (int)status;
}

void requestMediaPermission(int video) {
    AVMediaType type = video ? AVMediaTypeVideo : AVMediaTypeAudio;
    [AVCaptureDevice requestAccessForMediaType:type completionHandler:^(BOOL granted) {}];
}

int checkAccessibilityPermission() {
    NSDictionary *options = @{(__bridge id)kAXTrustedCheckOptionPrompt: @YES};
    return AXIsProcessTrustedWithOptions((__bridge CFDictionaryRef)options) ? 1 : 0;
}
*/
import "C"

import "fmt"

const (
	PermissionNotDetermined = 0
	PermissionRestricted    = 1
	PermissionDenied        = 2
	PermissionAuthorized    = 3
)

// CheckCamera returns the current camera permission status
func CheckCamera() (int, error) {
	return int(C.checkMediaPermission(1)), nil
}

// RequestCamera triggers the system camera permission dialog
func RequestCamera() error {
	C.requestMediaPermission(1)
	return nil
}

// CheckMicrophone returns the current microphone permission status
func CheckMicrophone() (int, error) {
	return int(C.checkMediaPermission(0)), nil
}

// RequestMicrophone triggers the system microphone permission dialog
func RequestMicrophone() error {
	C.requestMediaPermission(0)
	return nil
}

// CheckAccessibility checks if the app has accessibility permissions (needed for hotkeys)
func CheckAccessibility() (bool, error) {
	status := int(C.checkAccessibilityPermission())
	return status == 1, nil
}

// EnsurePermissions checks and requests all required permissions
func EnsurePermissions() error {
	camStatus, _ := CheckCamera()
	if camStatus != PermissionAuthorized {
		fmt.Println("⚠️  Camera permission required for capture card video")
		RequestCamera()
		return fmt.Errorf("camera permission not granted")
	}

	micStatus, _ := CheckMicrophone()
	if micStatus != PermissionAuthorized {
		fmt.Println("⚠️  Microphone permission required for capture card audio")
		RequestMicrophone()
		return fmt.Errorf("microphone permission not granted")
	}

	axGranted, _ := CheckAccessibility()
	if !axGranted {
		fmt.Println("⚠️  Accessibility permission required for hotkeys")
		fmt.Println("   Go to: System Settings → Privacy & Security → Accessibility")
		return fmt.Errorf("accessibility permission not granted")
	}

	return nil
}
