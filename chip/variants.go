package chip

import "intmux/interrupt"

const (
	after  = interrupt.AckAfterHandler
	before = interrupt.AckBeforeHandler
	level  = interrupt.KindLevel
	edge   = interrupt.KindEdge
)

// ESP32C3 is the single-core RISC-V part: 62 matrix sources, CPU lines
// 1-31, priorities 1-15. Line 1 is left to the radio firmware.
var ESP32C3 = register(&Variant{
	Name:        "esp32c3",
	Arch:        "riscv32imc",
	Cores:       1,
	Lines:       lineRange(1, 31),
	Reserved:    lineRange(1, 1),
	MaxPriority: 15,
	Sources: []SourceInfo{
		{"WIFI_MAC", 0, after, level},
		{"WIFI_MAC_NMI", 1, after, level},
		{"WIFI_PWR", 2, after, level},
		{"WIFI_BB", 3, after, level},
		{"BT_MAC", 4, after, level},
		{"BT_BB", 5, after, level},
		{"BT_BB_NMI", 6, after, level},
		{"RWBT", 7, after, level},
		{"RWBLE", 8, after, level},
		{"RWBT_NMI", 9, after, level},
		{"RWBLE_NMI", 10, after, level},
		{"I2C_MASTER", 11, after, level},
		{"SLC0", 12, after, level},
		{"SLC1", 13, after, level},
		{"APB_CTRL", 14, after, level},
		{"UHCI0", 15, after, level},
		{"GPIO", 16, after, level},
		{"GPIO_NMI", 17, after, level},
		{"SPI1", 18, after, level},
		{"SPI2", 19, after, level},
		{"I2S1", 20, after, level},
		{"UART0", 21, after, level},
		{"UART1", 22, after, level},
		{"LEDC", 23, after, level},
		{"EFUSE", 24, after, level},
		{"TWAI", 25, after, level},
		{"USB_DEVICE", 26, after, level},
		{"RTC_CORE", 27, after, level},
		{"RMT", 28, after, level},
		{"I2C_EXT0", 29, after, level},
		{"TIMER1", 30, after, level},
		{"TIMER2", 31, after, level},
		{"TG0_T0_LEVEL", 32, after, level},
		{"TG0_WDT_LEVEL", 33, after, level},
		{"TG1_T0_LEVEL", 34, after, level},
		{"TG1_WDT_LEVEL", 35, after, level},
		{"CACHE_IA", 36, after, level},
		{"SYSTIMER_TARGET0", 37, after, level},
		{"SYSTIMER_TARGET1", 38, after, level},
		{"SYSTIMER_TARGET2", 39, after, level},
		{"SPI_MEM_REJECT_CACHE", 40, after, level},
		{"ICACHE_PRELOAD0", 41, after, level},
		{"ICACHE_SYNC0", 42, after, level},
		{"APB_ADC", 43, after, level},
		{"DMA_CH0", 44, before, level},
		{"DMA_CH1", 45, before, level},
		{"DMA_CH2", 46, before, level},
		{"RSA", 47, after, level},
		{"AES", 48, after, level},
		{"SHA", 49, after, level},
		{"FROM_CPU_INTR0", 50, before, edge},
		{"FROM_CPU_INTR1", 51, before, edge},
		{"FROM_CPU_INTR2", 52, before, edge},
		{"FROM_CPU_INTR3", 53, before, edge},
		{"ASSIST_DEBUG", 54, after, level},
		{"DMA_APBPERI_PMS", 55, after, level},
		{"CORE0_IRAM0_PMS", 56, after, level},
		{"CORE0_DRAM0_PMS", 57, after, level},
		{"CORE0_PIF_PMS", 58, after, level},
		{"CORE0_PIF_PMS_SIZE", 59, after, level},
		{"BAK_PMS_VIOLATE", 60, after, level},
		{"CACHE_CORE0_ACS", 61, after, level},
	},
})

// Sim32 is a small dual-core variant used by the simulator and tests.
var Sim32 = register(&Variant{
	Name:        "sim32",
	Arch:        "sim",
	Cores:       2,
	Lines:       lineRange(1, 31),
	MaxPriority: 7,
	Sources: []SourceInfo{
		{"TIMER0", 0, after, level},
		{"TIMER1", 1, after, level},
		{"UART0", 2, after, level},
		{"UART1", 3, after, level},
		{"GPIO", 4, after, level},
		{"SPI0", 5, after, level},
		{"I2C0", 6, after, level},
		{"ADC", 7, after, level},
		{"DMA0", 8, before, level},
		{"DMA1", 9, before, level},
		{"SW0", 10, before, edge},
		{"SW1", 11, before, edge},
	},
})
