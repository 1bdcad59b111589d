// Package partid holds well known partition type ids and the mapping between
// GPT type GUIDs and msdos partition type bytes.
package partid

import (
	"strings"

	"github.com/rekby/gpt"
	"github.com/rekby/mbr"
)

func mustParse(s string) [16]byte {
	g, err := gpt.StringToGuid(s)
	if err != nil {
		panic(err)
	}

	return [16]byte(g)
}

//nolint:gochecknoglobals
var (
	// LinuxFS - Linux filesystem data.
	LinuxFS = mustParse("0FC63DAF-8483-4772-8E79-3D69D8477DE4")

	// LinuxLVM - Linux LVM physical volume.
	LinuxLVM = mustParse("E6D6D379-F507-44C2-A23C-238F2A3DF928")

	// LinuxRAID - Linux MD RAID member.
	LinuxRAID = mustParse("A19D880F-05FC-4D3B-A006-743F0F84911E")

	// LinuxSwap - Linux swap.
	LinuxSwap = mustParse("0657FD6D-A4AB-43C4-84E5-0933C84B4F4F")

	// EFI - EFI System partition.
	EFI = mustParse("C12A7328-F81F-11D2-BA4B-00A0C93EC93B")

	// BIOSBoot - BIOS boot partition for grub on GPT.
	BIOSBoot = mustParse("21686148-6449-6E6F-744E-656564454649")

	// MSBasicData - Microsoft basic data.
	MSBasicData = mustParse("EBD0A0A2-B9E5-4433-87C0-68B6B72699C7")

	// MSReserved - Microsoft reserved.
	MSReserved = mustParse("E3C9E316-0B5C-4DB8-817D-F92DF00215AE")

	// WindowsRecovery - Windows recovery environment.
	WindowsRecovery = mustParse("DE94BBA4-06D1-4D40-A16A-BFD50179D6AC")
)

// Text maps the partition type ids to a short human name.
//nolint:gochecknoglobals
var Text = map[[16]byte]string{
	LinuxFS:         "Linux-FS",
	LinuxLVM:        "LVM",
	LinuxRAID:       "RAID",
	LinuxSwap:       "Swap",
	EFI:             "EFI",
	BIOSBoot:        "BIOS-Boot",
	MSBasicData:     "MS-Basic-Data",
	MSReserved:      "MS-Reserved",
	WindowsRecovery: "Windows-Recovery",
}

// ByText returns the partition type id with the given human name.
func ByText(name string) ([16]byte, bool) {
	for id, text := range Text {
		if strings.EqualFold(text, name) {
			return id, true
		}
	}

	return [16]byte{}, false
}

// msdos partition type bytes.
const (
	MBRNTFS        mbr.PartitionType = 0x07
	MBRFAT32       mbr.PartitionType = 0x0b
	MBRFAT32LBA    mbr.PartitionType = 0x0c
	MBRExtended    mbr.PartitionType = 0x05
	MBRExtLBA      mbr.PartitionType = 0x0f
	MBRLinuxExt    mbr.PartitionType = 0x85
	MBRSwap        mbr.PartitionType = 0x82
	MBRLinux       mbr.PartitionType = 0x83
	MBRLVM         mbr.PartitionType = 0x8e
	MBRRAID        mbr.PartitionType = 0xfd
	MBREFI         mbr.PartitionType = 0xef
	MBRWinRecovery mbr.PartitionType = 0x27
)

//nolint:gochecknoglobals
var fromMBR = map[mbr.PartitionType][16]byte{
	MBRNTFS:        MSBasicData,
	MBRFAT32:       MSBasicData,
	MBRFAT32LBA:    MSBasicData,
	MBRSwap:        LinuxSwap,
	MBRLinux:       LinuxFS,
	MBRLVM:         LinuxLVM,
	MBRRAID:        LinuxRAID,
	MBREFI:         EFI,
	MBRWinRecovery: WindowsRecovery,
}

// FromMBR returns the GPT type id equivalent to an msdos partition type.
func FromMBR(t mbr.PartitionType) ([16]byte, bool) {
	id, ok := fromMBR[t]
	return id, ok
}

// ToMBR returns the msdos partition type equivalent to a GPT type id.
func ToMBR(id [16]byte) (mbr.PartitionType, bool) {
	if id == MSBasicData {
		return MBRNTFS, true
	}

	for t, gid := range fromMBR {
		if gid == id {
			return t, true
		}
	}

	return mbr.PART_EMPTY, false
}

// IsExtendedMBR returns true for the msdos extended container types.
func IsExtendedMBR(t mbr.PartitionType) bool {
	return t == MBRExtended || t == MBRExtLBA || t == MBRLinuxExt
}

// IsLinux returns true for the partition type ids used by Linux.
func IsLinux(id [16]byte) bool {
	return id == LinuxFS || id == LinuxLVM || id == LinuxRAID || id == LinuxSwap
}

// IsWindows returns true for the partition type ids used by Windows.
func IsWindows(id [16]byte) bool {
	return id == MSBasicData || id == MSReserved || id == WindowsRecovery
}
