package draft

import "fmt"

// GenerateOrder returns the team id (1-based) for every slot of the draft.
// Odd rounds run 1..teams; even rounds run teams..1 when snake is set.
func GenerateOrder(teams, rounds int, snake bool) ([]int, error) {
	if teams <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTeamCount, teams)
	}
	if rounds <= 0 {
		return nil, fmt.Errorf("rounds must be positive, got %d", rounds)
	}

	order := make([]int, 0, teams*rounds)
	for round := 1; round <= rounds; round++ {
		if snake && round%2 == 0 {
			for team := teams; team >= 1; team-- {
				order = append(order, team)
			}
			continue
		}
		for team := 1; team <= teams; team++ {
			order = append(order, team)
		}
	}
	return order, nil
}

// RoundAndPick converts a 0-based pick index to a 1-based round and pick in round
func RoundAndPick(pickIndex, teams int) (round, pick int) {
	return pickIndex/teams + 1, pickIndex%teams + 1
}

// TeamAt reconstructs which team owns a round/pick slot
func TeamAt(round, pick, teams int, snake bool) int {
	if snake && round%2 == 0 {
		return teams - pick + 1
	}
	return pick
}
