package proto

import "github.com/flashtool/stm32loader/stmerr"

// GetFlashSizeBytes reads the flash-size register for the descriptor's
// resolved family. Returns stmerr.UnknownFamily if GetID hasn't run yet or
// the family's register layout isn't in the catalog — never a guess.
func (e *Engine) GetFlashSizeBytes() (uint32, error) {
	if e.desc.FlashSizeAddr == nil {
		return 0, &stmerr.UnknownFamily{ProductID: e.desc.ProductID}
	}
	data, err := e.ReadMemory(*e.desc.FlashSizeAddr, 2)
	if err != nil {
		return 0, err
	}
	// The flash-size register is a 16-bit little-endian count of
	// kilobytes, per AN2606's register layout for every listed family.
	kib := uint32(data[0]) | uint32(data[1])<<8
	return kib * 1024, nil
}

// GetUID reads the unique-ID register for the descriptor's resolved
// family. STM32 unique IDs are 96 bits (12 bytes). Returns
// stmerr.UnknownFamily if the family's register layout isn't known.
func (e *Engine) GetUID() ([]byte, error) {
	if e.desc.UIDAddr == nil {
		return nil, &stmerr.UnknownFamily{ProductID: e.desc.ProductID}
	}
	return e.ReadMemory(*e.desc.UIDAddr, 12)
}
