package stm32f10x

import "clocktree-go/sysctl"

// The peripheral identity space is partitioned by enable-register bank:
// 32 IDs per bank, in AHBENR/APB1ENR/APB2ENR order, with a final group for
// clocked subsystems that sit beyond any bus.
const registerWidth = 32

// Bus group base IDs.
const (
	GroupAHB    sysctl.PeripheralID = registerWidth * 0
	GroupAPB1   sysctl.PeripheralID = registerWidth * 1
	GroupAPB2   sysctl.PeripheralID = registerWidth * 2
	GroupBeyond sysctl.PeripheralID = registerWidth * 3
)

// AHB peripherals. The ID offset is the peripheral's AHBENR bit position.
const (
	DMA1  = GroupAHB + 0
	DMA2  = GroupAHB + 1
	SRAM  = GroupAHB + 2
	FLITF = GroupAHB + 4
	CRC   = GroupAHB + 6
	FSMC  = GroupAHB + 8
	SDIO  = GroupAHB + 10
)

// APB1 peripherals.
const (
	Timer2         = GroupAPB1 + 0
	Timer3         = GroupAPB1 + 1
	Timer4         = GroupAPB1 + 2
	Timer5         = GroupAPB1 + 3
	Timer6         = GroupAPB1 + 4
	Timer7         = GroupAPB1 + 5
	Timer12        = GroupAPB1 + 6
	Timer13        = GroupAPB1 + 7
	Timer14        = GroupAPB1 + 8
	WindowWatchdog = GroupAPB1 + 11
	SPI2           = GroupAPB1 + 14
	SPI3           = GroupAPB1 + 15
	USART2         = GroupAPB1 + 17
	USART3         = GroupAPB1 + 18
	UART4          = GroupAPB1 + 19
	UART5          = GroupAPB1 + 20
	I2C1           = GroupAPB1 + 21
	I2C2           = GroupAPB1 + 22
	USB            = GroupAPB1 + 23
	CAN1           = GroupAPB1 + 25
	BackupClock    = GroupAPB1 + 27
	Power          = GroupAPB1 + 28
	DAC            = GroupAPB1 + 29
)

// APB2 peripherals.
const (
	AFIO    = GroupAPB2 + 0
	GPIOA   = GroupAPB2 + 2
	GPIOB   = GroupAPB2 + 3
	GPIOC   = GroupAPB2 + 4
	GPIOD   = GroupAPB2 + 5
	GPIOE   = GroupAPB2 + 6
	GPIOF   = GroupAPB2 + 7
	GPIOG   = GroupAPB2 + 8
	ADC1    = GroupAPB2 + 9
	ADC2    = GroupAPB2 + 10
	Timer1  = GroupAPB2 + 11
	SPI1    = GroupAPB2 + 12
	Timer8  = GroupAPB2 + 13
	USART1  = GroupAPB2 + 14
	ADC3    = GroupAPB2 + 15
	Timer9  = GroupAPB2 + 19
	Timer10 = GroupAPB2 + 20
	Timer11 = GroupAPB2 + 21
)

// Clocked subsystems outside any enable bank.
const (
	CPU         = GroupBeyond + 0
	SystemTimer = GroupBeyond + 1
	I2S         = GroupBeyond + 2
	RTC         = GroupBeyond + 3
)
